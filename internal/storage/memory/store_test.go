package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

func TestStore_BoardRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	snap, err := s.LoadBoard(ctx)
	require.NoError(t, err)
	require.Empty(t, snap)

	in := jobs.BoardSnapshot{
		jobs.CategoryMatch: {{
			Posting:  jobs.Posting{ID: "a", Title: "t", URL: "https://jobs/a"},
			Score:    90,
			Category: jobs.CategoryMatch,
		}},
	}
	require.NoError(t, s.SaveBoard(ctx, in))

	// Mutating the caller's snapshot after saving must not leak into the
	// store.
	in[jobs.CategoryMatch][0].Title = "mutated"

	out, err := s.LoadBoard(ctx)
	require.NoError(t, err)
	require.Equal(t, "t", out[jobs.CategoryMatch][0].Title)
}

func TestStore_SettingsRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	settings, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	require.Empty(t, settings.Criteria)

	require.NoError(t, s.SaveSettings(ctx, jobs.Settings{
		Schedule: jobs.ScheduleDaily,
		Criteria: "go backend",
	}))

	settings, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, jobs.ScheduleDaily, settings.Schedule)
	require.Equal(t, "go backend", settings.Criteria)
}
