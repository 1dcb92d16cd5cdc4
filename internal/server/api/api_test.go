package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ayusman/studybuddy/internal/app"
)

type fakeTracker struct {
	mu      sync.Mutex
	view    app.View
	intents []app.Intent
	full    bool
}

func (f *fakeTracker) View() app.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeTracker) Submit(i app.Intent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.intents = append(f.intents, i)
	return true
}

func TestStatusHandler(t *testing.T) {
	tr := &fakeTracker{view: app.View{State: "focused", Running: true, TotalPoints: 30, Streak: "00:10:00"}}
	h := NewStatusHandler(tr)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["state"] != "focused" {
		t.Errorf("state = %v, want focused", got["state"])
	}
	if got["total_points"] != float64(30) {
		t.Errorf("total_points = %v, want 30", got["total_points"])
	}
	if got["streak"] != "00:10:00" {
		t.Errorf("streak = %v, want 00:10:00", got["streak"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestSessionHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantIntent app.Intent
	}{
		{name: "start", method: http.MethodPost, path: "/api/session/start", wantStatus: http.StatusAccepted, wantIntent: app.IntentStart},
		{name: "stop", method: http.MethodPost, path: "/api/session/stop", wantStatus: http.StatusAccepted, wantIntent: app.IntentStop},
		{name: "snapshot is not a session action", method: http.MethodPost, path: "/api/session/snapshot", wantStatus: http.StatusNotFound},
		{name: "unknown action", method: http.MethodPost, path: "/api/session/pause", wantStatus: http.StatusNotFound},
		{name: "GET not allowed", method: http.MethodGet, path: "/api/session/start", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTracker{}
			h := NewSessionHandler(tr)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantIntent == 0 {
				if len(tr.intents) != 0 {
					t.Errorf("intents = %v, want none", tr.intents)
				}
				return
			}
			if len(tr.intents) != 1 || tr.intents[0] != tt.wantIntent {
				t.Errorf("intents = %v, want [%v]", tr.intents, tt.wantIntent)
			}
		})
	}
}

func TestSnapshotHandler(t *testing.T) {
	tr := &fakeTracker{}
	h := NewSnapshotHandler(tr)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshot", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	var resp intentResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Queued != "snapshot" {
		t.Errorf("queued = %q, want snapshot", resp.Queued)
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	tr := &fakeTracker{full: true}
	h := NewSnapshotHandler(tr)

	req := httptest.NewRequest(http.MethodPost, "/api/snapshot", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
