package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func digestAt(id string, started time.Time, results ...model.ProcessedResult) *model.Digest {
	d := &model.Digest{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Total:      len(results),
		Results:    results,
	}
	for _, r := range results {
		if r.DraftID != "" {
			d.DraftsSaved++
		}
		if r.CalendarEventID != "" {
			d.EventsCreated++
		}
	}
	return d
}

func TestNewSQLiteStore_Migrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	require.NoError(t, s.Close())

	// Reopening must not re-apply migrations.
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	in := digestAt("run-1", started,
		model.ProcessedResult{
			Index: 1, EmailID: "m1", ThreadID: "t1", Sender: "Ann <ann@example.com>", SenderEmail: "ann@example.com",
			Subject: "Sync", Summary: "Wants a sync.", KeyPoints: []string{"sync", "Thursday"},
			Urgency: model.UrgencyHigh, ReplyNeeded: true, ReplyReason: "Question", DraftID: "d1",
			CalendarAction: model.CalendarMeeting, CalendarEventID: "e1", ConflictDetected: true,
			CalendarDetails: model.CalendarDetails{Title: "Sync", Date: "2026-10-22", Time: "15:00", DurationMinutes: 30},
		},
		model.ProcessedResult{
			Index: 2, EmailID: "m2", Subject: "Newsletter", ReplyReason: model.FallbackReplyReason,
			CalendarAction: model.CalendarNone, Errors: []string{"classify: unparseable"},
		},
	)
	in.Conflicts = 1
	require.NoError(t, s.SaveRun(ctx, in))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 90*time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.DraftsSaved)
	assert.Equal(t, 1, got.EventsCreated)
	assert.Equal(t, 1, got.Conflicts)

	require.Len(t, got.Results, 2)
	first := got.Results[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, []string{"sync", "Thursday"}, first.KeyPoints)
	assert.Equal(t, in.Results[0].CalendarDetails, first.CalendarDetails)
	assert.True(t, first.ReplyNeeded)
	assert.True(t, first.ConflictDetected)
	assert.Equal(t, model.UrgencyHigh, first.Urgency)
	assert.Nil(t, first.Errors)

	second := got.Results[1]
	assert.Equal(t, []string{"classify: unparseable"}, second.Errors)
	assert.Equal(t, []string{}, second.KeyPoints)
	assert.Equal(t, model.CalendarNone, second.CalendarAction)
}

func TestSaveRun_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := digestAt("run-1", time.Now(), model.ProcessedResult{Index: 1, EmailID: "m1"})

	require.NoError(t, s.SaveRun(ctx, d))
	assert.Error(t, s.SaveRun(ctx, d))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
}

func TestSaveRun_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := digestAt("run-1", time.Now(),
		model.ProcessedResult{Index: 1, EmailID: "m1"},
		model.ProcessedResult{Index: 1, EmailID: "dup"},
	)

	require.Error(t, s.SaveRun(ctx, d))

	_, err := s.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_Empty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, digestAt("empty", time.Now())))
	got, err := s.GetRun(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)

	assert.Error(t, s.SaveRun(ctx, nil))
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveRun(ctx, digestAt(id, base.Add(time.Duration(i)*time.Hour))))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all newest first", limit: 10, want: []string{"c", "b", "a"}},
		{name: "limited", limit: 2, want: []string{"c", "b"}},
		{name: "default limit", limit: 0, want: []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.limit)
			require.NoError(t, err)
			ids := make([]string, 0, len(runs))
			for _, r := range runs {
				ids = append(ids, r.RunID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestPing(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
