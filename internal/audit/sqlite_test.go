// ABOUTME: Tests for the SQLite audit sink against an on-disk temp database
// ABOUTME: Covers record/list round trips, ordering, and limit normalization

package audit

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := NewSQLiteSink(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSQLiteSink_RecordAndList(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	sink.Record(ctx, ActionToolExecute, map[string]any{"tool": "example-tool", "subject": "user-1"})
	sink.Record(ctx, ActionToolSuccess, map[string]any{"tool": "example-tool"})

	entries, err := sink.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	actions := []string{entries[0].Action, entries[1].Action}
	assert.Contains(t, actions, ActionToolExecute)
	assert.Contains(t, actions, ActionToolSuccess)

	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, "example-tool", e.Detail["tool"])
	}
}

func TestSQLiteSink_NilDetail(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	sink.Record(ctx, ActionToolError, nil)

	entries, err := sink.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Detail)
}

func TestSQLiteSink_ListEmpty(t *testing.T) {
	sink := newTestSink(t)

	entries, err := sink.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestSQLiteSink_ListLimit(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sink.Record(ctx, ActionToolExecute, map[string]any{"i": i})
	}

	entries, err := sink.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
