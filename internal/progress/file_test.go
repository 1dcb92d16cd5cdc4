package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "state", "progress.json"), nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := newTestFileStore(t)

	p := s.Load(context.Background())
	require.Equal(t, Progress{}, p)
	require.Nil(t, p.LastSaved)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	p := Progress{TotalPoints: 30, BestStreakSeconds: 4521}
	require.NoError(t, s.Save(ctx, &p))
	require.NotNil(t, p.LastSaved)
	require.Equal(t, int64(1700000000), *p.LastSaved)

	loaded := s.Load(ctx)
	require.Equal(t, p, loaded)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "garbage", data: "not json {"},
		{name: "truncated", data: `{"total_points": 1`},
		{name: "wrong types", data: `{"total_points": "ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestFileStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.data), 0644))

			p := s.Load(context.Background())
			require.Equal(t, Progress{}, p)
		})
	}
}

func TestFileStore_LoadIgnoresUnknownFields(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	data := `{"total_points": 20, "best_streak_seconds": 61, "last_saved": null, "theme": "dark"}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(data), 0644))

	p := s.Load(context.Background())
	require.Equal(t, int64(20), p.TotalPoints)
	require.Equal(t, int64(61), p.BestStreakSeconds)
	require.Nil(t, p.LastSaved)
}

func TestFileStore_LoadClampsNegative(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"total_points": -5, "best_streak_seconds": 12}`), 0644))

	p := s.Load(context.Background())
	require.Equal(t, int64(0), p.TotalPoints)
	require.Equal(t, int64(12), p.BestStreakSeconds)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	for i := 0; i < 3; i++ {
		p := Progress{TotalPoints: int64(i * 10)}
		require.NoError(t, s.Save(ctx, &p))
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "progress.json", entries[0].Name())
	require.Equal(t, int64(20), s.Load(ctx).TotalPoints)
}

func TestFileStore_SaveFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	p := Progress{TotalPoints: 10}
	require.NoError(t, s.Save(ctx, &p))

	// Replace the target with a non-empty directory so the rename fails.
	require.NoError(t, os.Remove(s.Path()))
	require.NoError(t, os.MkdirAll(filepath.Join(s.Path(), "blocker"), 0755))

	next := Progress{TotalPoints: 20}
	require.Error(t, s.Save(ctx, &next))
	require.Nil(t, next.LastSaved, "failed save must not stamp the caller's value")
}

func TestProgress_Equal(t *testing.T) {
	a, b := int64(1), int64(1)
	c := int64(2)

	require.True(t, Progress{LastSaved: &a}.Equal(Progress{LastSaved: &b}))
	require.False(t, Progress{LastSaved: &a}.Equal(Progress{LastSaved: &c}))
	require.False(t, Progress{LastSaved: &a}.Equal(Progress{}))
	require.False(t, Progress{TotalPoints: 1}.Equal(Progress{}))
}
