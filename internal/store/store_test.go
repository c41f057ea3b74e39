package store

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careahead/vitalscope/internal/vitals"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "careahead.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndHistoryOrdersOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2026, time.May, 4, 8, 30, 0, 0, time.UTC)

	for _, sample := range []vitals.Sample{
		{Timestamp: base.AddDate(0, 0, 2), HeartRate: 70, BreathingRate: 14},
		{Timestamp: base, HeartRate: 64, BreathingRate: 13, SleepHours: vitals.Hours(7.25), Notes: "after run"},
		{Timestamp: base.AddDate(0, 0, 1), HeartRate: 66, BreathingRate: 15},
	} {
		_, err := s.Add(ctx, sample)
		require.NoError(t, err)
	}

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Timestamp.Equal(base))
	assert.Equal(t, 64, history[0].HeartRate)
	assert.Equal(t, "after run", history[0].Notes)
	hours, ok := history[0].Sleep()
	require.True(t, ok)
	assert.Equal(t, 7.25, hours)
	_, ok = history[1].Sleep()
	assert.False(t, ok)
	assert.Equal(t, 70, history[2].HeartRate)
}

func TestHistoryKeepsLocalCalendarDay(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	zone := time.FixedZone("UTC-7", -7*3600)
	late := time.Date(2026, time.May, 4, 23, 15, 0, 0, zone)

	_, err := s.Add(ctx, vitals.Sample{Timestamp: late, HeartRate: 61, BreathingRate: 12})
	require.NoError(t, err)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 4, history[0].Day().Day(), "UTC would roll this reading into the next day")
}

func TestAddRejectsImplausibleReadings(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Add(context.Background(), vitals.Sample{Timestamp: time.Now(), HeartRate: 400, BreathingRate: 12})
	var rangeErr *vitals.RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "heart rate", rangeErr.Field)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedFillsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ref := time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)

	n, err := s.Seed(ctx, SeedDays, ref, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, SeedDays, n)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, SeedDays)
	assert.Equal(t, ref.AddDate(0, 0, -SeedDays).Day(), history[0].Timestamp.Day())
	last := history[len(history)-1]
	assert.True(t, last.Day().Before(vitals.Day(ref)), "seeded history must stop before today")
	for _, sample := range history {
		assert.Equal(t, 12, sample.Timestamp.Hour())
		assert.GreaterOrEqual(t, sample.HeartRate, 55)
		assert.LessOrEqual(t, sample.HeartRate, 95)
		assert.GreaterOrEqual(t, sample.BreathingRate, 12)
		assert.LessOrEqual(t, sample.BreathingRate, 20)
	}

	_, err = s.Seed(ctx, SeedDays, ref, rand.New(rand.NewSource(2)))
	assert.ErrorIs(t, err, ErrNotEmpty)
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedDays, count)
}

func TestReopenKeepsDataAndSkipsAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "careahead.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, vitals.Sample{Timestamp: time.Now(), HeartRate: 60, BreathingRate: 12})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var versions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)
}
