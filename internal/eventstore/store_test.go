package eventstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_AppendAndGetByRunID(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	started, err := NewTaskStarted("run-1", "build")
	require.NoError(t, err)
	started.EventMetadata = map[string]string{"session_id": "abc"}
	require.NoError(t, s.Append(ctx, started))

	done, err := NewTaskCompleted("run-1", "build", 120*time.Millisecond, 4)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, done))

	other, err := NewTaskStarted("run-2", "lint")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, other))

	events, err := s.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeTaskStarted, events[0].Type())
	assert.Equal(t, "build", events[0].Task())
	assert.Equal(t, "abc", events[0].Metadata()["session_id"])
	assert.Equal(t, TypeTaskCompleted, events[1].Type())
	assert.JSONEq(t, `{"duration_ms":120,"files":4}`, string(events[1].Payload()))
	assert.Less(t, events[0].ID(), events[1].ID())
}

func TestSQLiteStore_GetRange(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	old := &BaseEvent{EventRunID: "r", EventType: TypeRunStarted, EventTimestamp: time.Now().Add(-48 * time.Hour)}
	recent := &BaseEvent{EventRunID: "r", EventType: TypeRunCompleted}
	require.NoError(t, s.Append(ctx, old))
	require.NoError(t, s.Append(ctx, recent))

	events, err := s.GetRange(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeRunCompleted, events[0].Type())
	assert.JSONEq(t, `{}`, string(events[0].Payload()))
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	e, err := NewRunStarted("run-1", []string{"default"}, "cli")
	require.NoError(t, err)
	require.NoError(t, s.Append(t.Context(), e))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	events, err := reopened.GetByRunID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteStore_ClosedStoreReportsStorageError(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Append(t.Context(), &BaseEvent{EventRunID: "r", EventType: TypeRunStarted})
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryStorage))
}

func TestRunHistoryProjection(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	appendAll := func(events ...*BaseEvent) {
		for _, e := range events {
			require.NoError(t, s.Append(ctx, e))
		}
	}
	must := func(e *BaseEvent, err error) *BaseEvent {
		require.NoError(t, err)
		return e
	}

	appendAll(
		must(NewRunStarted("run-1", []string{"default"}, "cli")),
		must(NewTaskStarted("run-1", "pages")),
		must(NewTaskCompleted("run-1", "pages", 30*time.Millisecond, 2)),
		must(NewRunCompleted("run-1", 40*time.Millisecond, nil)),
		must(NewRunStarted("run-2", []string{"pages"}, "watch")),
		must(NewTaskFailed("run-2", "pages", 5*time.Millisecond, errors.New("boom"))),
		must(NewRunCompleted("run-2", 6*time.Millisecond, errors.New("boom"))),
		must(NewRunStarted("run-3", []string{"assets"}, "schedule")),
	)

	p := NewRunHistoryProjection(s, 2)
	require.NoError(t, p.Rebuild(ctx, time.Time{}))

	list := p.List(0)
	require.Len(t, list, 2, "history is capped")
	assert.Equal(t, "run-3", list[0].RunID)
	assert.Equal(t, RunStatusRunning, list[0].Status)
	assert.Equal(t, "run-2", list[1].RunID)
	assert.Equal(t, RunStatusFailed, list[1].Status)
	assert.Equal(t, "boom", list[1].Results[0].Error)

	_, ok := p.Get("run-1")
	assert.False(t, ok, "evicted runs are forgotten")

	p.Apply(must(NewRunCompleted("run-3", time.Second, nil)))
	got, ok := p.Get("run-3")
	require.True(t, ok)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, time.Second, got.Duration)
	assert.Len(t, p.List(1), 1)
}
