package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/campus-issues/internal/config"
	"github.com/spec-kit/campus-issues/internal/domain"
	"github.com/spec-kit/campus-issues/internal/repository"
	"github.com/spec-kit/campus-issues/internal/session"
	apperrors "github.com/spec-kit/campus-issues/pkg/util"
)

type fakeUserRepo struct {
	byEmail   map[string]*domain.User
	seq       int
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	user.ID = "user-" + user.Email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.byEmail[user.Email] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	stored, ok := r.byEmail[user.Email]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.PasswordHash = user.PasswordHash
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

type fakeResetRepo struct {
	byToken map[string]*repository.PasswordResetToken
	seq     int
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{byToken: map[string]*repository.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.seq++
	token.ID = "reset-" + token.Token
	token.CreatedAt = time.Now()
	clone := *token
	r.byToken[token.Token] = &clone
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	token, ok := r.byToken[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	for _, token := range r.byToken {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newAuthFixture() (*AuthService, *fakeUserRepo, session.OverlayStore) {
	users := newFakeUserRepo()
	overlays := session.NewMemoryOverlayStore()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   5,
			PasswordResetTTLMinutes: 5,
			BcryptCost:              bcrypt.MinCost,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: newFakeResetRepo(),
		Overlays:          overlays,
	})
	return svc, users, overlays
}

func studentRegistration(email string) RegisterInput {
	return RegisterInput{
		Name:      "Asha",
		Email:     email,
		Password:  "hunter2!",
		Role:      domain.RoleStudent,
		StudentID: "24B01",
	}
}

func TestRegisterStudent(t *testing.T) {
	svc, _, _ := newAuthFixture()

	user, token, exp, err := svc.Register(context.Background(), studentRegistration("Asha@Campus.Edu"))
	require.NoError(t, err)
	assert.Equal(t, "asha@campus.edu", user.Email)
	require.NotNil(t, user.StudentID)
	assert.Equal(t, "24B01", *user.StudentID)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
	// Stored hash, never the plaintext.
	assert.NotEqual(t, "hunter2!", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, _, err := svc.Register(context.Background(), studentRegistration("asha@campus.edu"))
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), studentRegistration("ASHA@campus.edu"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "DUPLICATE_ACCOUNT"))
}

func TestRegisterRoleConditionalFields(t *testing.T) {
	svc, _, _ := newAuthFixture()

	input := studentRegistration("s@campus.edu")
	input.StudentID = "  "
	_, _, _, err := svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	prof := RegisterInput{
		Name:       "Dr. Rao",
		Email:      "rao@campus.edu",
		Password:   "pw",
		Role:       domain.RoleProfessor,
		Department: "NOT A DEPARTMENT",
	}
	_, _, _, err = svc.Register(context.Background(), prof)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	prof.Department = "ECE"
	user, _, _, err := svc.Register(context.Background(), prof)
	require.NoError(t, err)
	require.NotNil(t, user.Department)
	assert.Equal(t, "ECE", *user.Department)
}

func TestRegisterConcurrentDuplicateHitsConstraint(t *testing.T) {
	svc, users, _ := newAuthFixture()

	// A racing register slips past the read check; the unique constraint on
	// email fires at insert time and must still surface as a duplicate.
	users.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	_, _, _, err := svc.Register(context.Background(), studentRegistration("asha@campus.edu"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "DUPLICATE_ACCOUNT"))
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newAuthFixture()
	input := studentRegistration("x@campus.edu")
	input.Role = domain.Role("JANITOR")
	_, _, _, err := svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestLoginMissingProfileIsNotFound(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, _, err := svc.Login(context.Background(), "ghost@campus.edu", "pw")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestLoginWrongPasswordIsAuthError(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, _, err := svc.Register(context.Background(), studentRegistration("asha@campus.edu"))
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "asha@campus.edu", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "AUTH_FAILED"))
}

func TestLoginRoundTripsToken(t *testing.T) {
	svc, _, _ := newAuthFixture()
	registered, _, _, err := svc.Register(context.Background(), studentRegistration("asha@campus.edu"))
	require.NoError(t, err)

	user, token, _, err := svc.Login(context.Background(), "ASHA@campus.edu", "hunter2!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, domain.RoleStudent, claims.Role)
}

func TestLogoutClearsOverlays(t *testing.T) {
	svc, _, overlays := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, overlays.MarkUpvoted(ctx, "user-1", "issue-1"))
	require.NoError(t, svc.Logout(ctx, "user-1"))

	got, err := overlays.Snapshot(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got.Upvoted)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	_, _, _, err := svc.Register(ctx, studentRegistration("asha@campus.edu"))
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "asha@campus.edu")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "n3w-pass"))

	// Old password no longer works, the new one does.
	_, _, _, err = svc.Login(ctx, "asha@campus.edu", "hunter2!")
	require.Error(t, err)
	_, _, _, err = svc.Login(ctx, "asha@campus.edu", "n3w-pass")
	require.NoError(t, err)

	// A used token cannot be replayed.
	err = svc.ConfirmPasswordReset(ctx, token.Token, "another")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, err := svc.RequestPasswordReset(context.Background(), "ghost@campus.edu")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
