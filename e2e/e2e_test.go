package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/studybuddy/internal/app"
	"github.com/ayusman/studybuddy/internal/capture"
	"github.com/ayusman/studybuddy/internal/detector"
	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/progress"
	"github.com/ayusman/studybuddy/internal/server"
	"github.com/ayusman/studybuddy/internal/snapshot"
	"github.com/ayusman/studybuddy/internal/store"
)

type harness struct {
	app      *app.App
	detector *detector.MockDetector
	ts       *httptest.Server
	clock    time.Time
}

func (h *harness) tick(d time.Duration) {
	h.clock = h.clock.Add(d)
	h.app.Step(h.clock)
}

func (h *harness) post(t *testing.T, path string) {
	t.Helper()
	resp, err := h.ts.Client().Post(h.ts.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST %s status = %d, want %d", path, resp.StatusCode, http.StatusAccepted)
	}
}

func (h *harness) status(t *testing.T) app.View {
	t.Helper()
	resp, err := h.ts.Client().Get(h.ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	defer resp.Body.Close()

	var v app.View
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return v
}

func newHarness(t *testing.T, ps progress.Store, shotDir string) *harness {
	t.Helper()

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	h := &harness{
		detector: detector.NewMockDetector(),
		clock:    time.Unix(1700000000, 0),
	}
	h.app = app.New(app.Config{
		Camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector: h.detector,
		Store:    ps,
		Exporter: snapshot.NewExporter(shotDir),
		Focus: focus.Config{
			GracePeriod:       7 * time.Second,
			RewardInterval:    25 * time.Minute,
			PointsPerInterval: 10,
		},
		ReadTimeout: 2 * time.Second,
	})
	t.Cleanup(func() { h.app.Close() })

	if err := h.app.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	h.ts = httptest.NewServer(server.New(server.Config{Tracker: h.app}))
	t.Cleanup(h.ts.Close)
	return h
}

func TestE2E_FocusSessionOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	storePath := filepath.Join(tmpDir, "progress.json")
	shotDir := filepath.Join(tmpDir, "shots")
	h := newHarness(t, progress.NewFileStore(storePath, nil), shotDir)

	t.Run("Start", func(t *testing.T) {
		h.post(t, "/api/session/start")
		h.tick(0)

		v := h.status(t)
		if !v.Running || v.State != "idle" {
			t.Fatalf("after start: running=%v state=%q, want running idle", v.Running, v.State)
		}
	})

	t.Run("FocusAndReward", func(t *testing.T) {
		h.detector.SetPresent(true)
		// One slow tick covering a whole reward interval.
		h.tick(25 * time.Minute)

		v := h.status(t)
		if v.State != "focused" {
			t.Fatalf("state = %q, want focused", v.State)
		}
		if v.TotalPoints != 10 {
			t.Errorf("total_points = %d, want 10", v.TotalPoints)
		}
		if v.Streak != "00:25:00" {
			t.Errorf("streak = %q, want 00:25:00", v.Streak)
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		h.post(t, "/api/snapshot")
		h.tick(time.Second)

		entries, err := os.ReadDir(shotDir)
		if err != nil {
			t.Fatalf("read snapshot dir: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("snapshots = %d, want 1", len(entries))
		}
	})

	t.Run("GraceTimeout", func(t *testing.T) {
		h.detector.SetPresent(false)
		for i := 0; i < 8; i++ {
			h.tick(time.Second)
		}

		v := h.status(t)
		if v.State != "idle" {
			t.Fatalf("state = %q, want idle", v.State)
		}
		if v.BestStreakSeconds != 25*60+1 {
			t.Errorf("best_streak_seconds = %d, want %d", v.BestStreakSeconds, 25*60+1)
		}
	})

	t.Run("StopAndPersist", func(t *testing.T) {
		h.post(t, "/api/session/stop")
		h.tick(time.Second)

		if v := h.status(t); v.Running {
			t.Fatal("still running after stop")
		}

		saved := progress.NewFileStore(storePath, nil).Load(context.Background())
		if saved.TotalPoints != 10 || saved.BestStreakSeconds != 25*60+1 {
			t.Errorf("saved = %+v, want 10 points and best %d", saved, 25*60+1)
		}
	})
}

func TestE2E_SQLiteBackendSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dbPath := filepath.Join(t.TempDir(), "progress.db")

	s, err := store.New(dbPath, nil)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	h := newHarness(t, s, t.TempDir())

	h.post(t, "/api/session/start")
	h.tick(0)
	h.detector.SetPresent(true)
	h.tick(10 * time.Second)
	h.post(t, "/api/session/stop")
	h.tick(time.Second)

	// Close finalizes, saves and closes the database.
	if err := h.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := store.New(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	p := reopened.Load(context.Background())
	if p.BestStreakSeconds != 10 {
		t.Errorf("best_streak_seconds = %d, want 10", p.BestStreakSeconds)
	}
	if p.LastSaved == nil {
		t.Error("last_saved not set")
	}
}
