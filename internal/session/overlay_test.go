package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMarksPerUser(t *testing.T) {
	store := NewMemoryOverlayStore()
	ctx := context.Background()

	require.NoError(t, store.MarkUpvoted(ctx, "alice", "issue-1"))
	require.NoError(t, store.MarkReported(ctx, "alice", "issue-2"))

	has, err := store.HasUpvoted(ctx, "alice", "issue-1")
	require.NoError(t, err)
	assert.True(t, has)

	// Marks are scoped to the user.
	has, err = store.HasUpvoted(ctx, "bob", "issue-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryStoreSnapshot(t *testing.T) {
	store := NewMemoryOverlayStore()
	ctx := context.Background()

	require.NoError(t, store.MarkUpvoted(ctx, "alice", "issue-1"))
	require.NoError(t, store.MarkUpvoted(ctx, "alice", "issue-2"))
	require.NoError(t, store.MarkReported(ctx, "alice", "issue-3"))

	got, err := store.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Upvoted, 2)
	assert.True(t, got.HasUpvoted("issue-1"))
	assert.True(t, got.HasUpvoted("issue-2"))
	assert.True(t, got.HasReported("issue-3"))
	assert.False(t, got.HasReported("issue-1"))
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryOverlayStore()
	ctx := context.Background()

	require.NoError(t, store.MarkUpvoted(ctx, "alice", "issue-1"))
	require.NoError(t, store.MarkReported(ctx, "alice", "issue-1"))
	require.NoError(t, store.MarkUpvoted(ctx, "bob", "issue-1"))

	require.NoError(t, store.Clear(ctx, "alice"))

	got, err := store.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got.Upvoted)
	assert.Empty(t, got.Reported)

	// Other sessions are untouched.
	has, err := store.HasUpvoted(ctx, "bob", "issue-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewMemoryOverlayStore()
	ctx := context.Background()

	require.NoError(t, store.MarkUpvoted(ctx, "alice", "issue-1"))
	got, err := store.Snapshot(ctx, "alice")
	require.NoError(t, err)

	// Mutating the snapshot must not leak back into the store.
	delete(got.Upvoted, "issue-1")
	has, err := store.HasUpvoted(ctx, "alice", "issue-1")
	require.NoError(t, err)
	assert.True(t, has)
}
