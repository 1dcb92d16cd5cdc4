// Package api provides the HTTP handlers that expose the tracker view and
// accept session intents.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/studybuddy/internal/app"
)

// Tracker is the part of app.App the handlers need.
type Tracker interface {
	View() app.View
	Submit(app.Intent) bool
}

type errorResponse struct {
	Error string `json:"error"`
}

type intentResponse struct {
	Queued string `json:"queued"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// StatusHandler serves the current view.
type StatusHandler struct {
	tracker Tracker
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(t Tracker) *StatusHandler {
	return &StatusHandler{tracker: t}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.View())
}

// SessionHandler handles POST /api/session/{start|stop}.
type SessionHandler struct {
	tracker Tracker
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(t Tracker) *SessionHandler {
	return &SessionHandler{tracker: t}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/session"), "/")
	intent, ok := app.ParseIntent(action)
	if !ok || (intent != app.IntentStart && intent != app.IntentStop) {
		writeError(w, http.StatusNotFound, "unknown session action")
		return
	}
	submit(w, h.tracker, intent)
}

// SnapshotHandler handles POST /api/snapshot.
type SnapshotHandler struct {
	tracker Tracker
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(t Tracker) *SnapshotHandler {
	return &SnapshotHandler{tracker: t}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	submit(w, h.tracker, app.IntentSnapshot)
}

// submit queues the intent. The result shows up in the view on a later tick.
func submit(w http.ResponseWriter, t Tracker, intent app.Intent) {
	if !t.Submit(intent) {
		writeError(w, http.StatusServiceUnavailable, "intent queue full, try again")
		return
	}
	writeJSON(w, http.StatusAccepted, intentResponse{Queued: intent.String()})
}
