package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-issues/internal/domain"
)

// IssueFilter captures retrieval-boundary narrowing. Ordering is imposed by
// the presenter, not here, so no compound index is required.
type IssueFilter struct {
	Department *string
	CreatedBy  *string
	Statuses   []domain.IssueStatus
	SearchTerm *string
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	// UpdateFields applies only the supplied fields, ignoring absent ones.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	// IncrementUpvote bumps the counter atomically, guarded by the open
	// status in the same statement. Returns the new count, or pgx.ErrNoRows
	// when the issue is missing or no longer open.
	IncrementUpvote(ctx context.Context, id string) (int, error)
	// TransitionFromOpen performs a compare-and-set status change: the write
	// lands only when the row is still OPEN at commit time. Returns
	// pgx.ErrNoRows when the precondition failed.
	TransitionFromOpen(ctx context.Context, id string, next domain.IssueStatus, fields map[string]any) (*domain.Issue, error)
	Delete(ctx context.Context, id string) error
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, title, description, department, image_url, resolved_image_url,
               upvotes, created_by, author, status, rejection_reason, created_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (title, description, department, image_url, created_by, author, status, upvotes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,0)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		issue.Title,
		issue.Description,
		issue.Department,
		issue.ImageURL,
		issue.CreatedBy,
		issue.Author,
		issue.Status,
	).Scan(&issue.ID, &issue.CreatedAt)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, id).Scan(scanTargets(&issue)...); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	base := `SELECT ` + issueColumns + ` FROM issues`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(department) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	query := fmt.Sprintf("%s WHERE %s", base, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *issueRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields))
	args := []any{}
	for _, column := range sortedKeys(fields) {
		args = append(args, fields[column])
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE issues SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueRepository) IncrementUpvote(ctx context.Context, id string) (int, error) {
	const query = `
        UPDATE issues SET upvotes = upvotes + 1
        WHERE id=$1 AND status=$2
        RETURNING upvotes`
	var upvotes int
	if err := r.pool.QueryRow(ctx, query, id, domain.IssueStatusOpen).Scan(&upvotes); err != nil {
		return 0, err
	}
	return upvotes, nil
}

func (r *issueRepository) TransitionFromOpen(ctx context.Context, id string, next domain.IssueStatus, fields map[string]any) (*domain.Issue, error) {
	sets := []string{}
	args := []any{next}
	sets = append(sets, "status=$1")
	for _, column := range sortedKeys(fields) {
		args = append(args, fields[column])
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, id, domain.IssueStatusOpen)
	query := fmt.Sprintf(`UPDATE issues SET %s WHERE id=$%d AND status=$%d RETURNING `+issueColumns,
		strings.Join(sets, ", "), len(args)-1, len(args))

	var issue domain.Issue
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&issue)...); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTargets(issue *domain.Issue) []any {
	return []any{
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Department,
		&issue.ImageURL,
		&issue.ResolvedImageURL,
		&issue.Upvotes,
		&issue.CreatedBy,
		&issue.Author,
		&issue.Status,
		&issue.RejectionReason,
		&issue.CreatedAt,
	}
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(scanTargets(&issue)...); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	// deterministic placeholder order keeps queries reproducible
	sort.Strings(keys)
	return keys
}
