// Command desktop-notify is a studybuddy hook that posts a desktop
// notification for focus events. It uses osascript on macOS and
// notify-send elsewhere.
//
// Build it into the hook directory next to hook.json:
//
//	go build -o ~/.studybuddy/hooks/desktop-notify/desktop-notify ./hooks/desktop-notify
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/ayusman/studybuddy/internal/focus"
	"github.com/ayusman/studybuddy/internal/hook"
)

type notifyConfig struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
}

func main() {
	var req hook.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	cfg := notifyConfig{Title: "Study Buddy"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	msg, ok := message(req)
	if !ok {
		writeSuccessResponse()
		return
	}

	if err := notify(cfg, msg); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}
	writeSuccessResponse()
}

// message renders the notification body for req. Events without a message
// are acknowledged silently.
func message(req hook.Request) (string, bool) {
	streak := focus.FormatStreak(secondsToDuration(req.StreakSeconds))
	switch req.Event {
	case hook.EventReward:
		return fmt.Sprintf("Nice! +%d points (total %d)", req.Points, req.TotalPoints), true
	case hook.EventNewBest:
		return "New best streak: " + streak, true
	case hook.EventSessionEnded:
		if req.Reason == "timeout" {
			return "You left, streak ended at " + streak, true
		}
		return "Session stopped at " + streak, true
	default:
		return "", false
	}
}

func notify(cfg notifyConfig, msg string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := "display notification " + strconv.Quote(msg) + " with title " + strconv.Quote(cfg.Title)
		if cfg.Sound {
			script += ` sound name "Glass"`
		}
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", cfg.Title, msg)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(hook.Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(hook.Response{Success: true})
}

func secondsToDuration(s int64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}
