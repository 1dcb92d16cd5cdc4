package app

import (
	"fmt"
	"time"

	"github.com/ayusman/studybuddy/internal/focus"
)

type noticeKind int

const (
	noticeStart noticeKind = iota + 1
	noticeFocus
	noticeLeft
	noticeReward
	noticeBest
	noticeSnapshot
	noticeSnapshotFailed
	noticeCameraMissing
)

var noticeTTL = map[noticeKind]time.Duration{
	noticeStart:          1200 * time.Millisecond,
	noticeFocus:          1200 * time.Millisecond,
	noticeLeft:           1600 * time.Millisecond,
	noticeReward:         2200 * time.Millisecond,
	noticeBest:           2200 * time.Millisecond,
	noticeSnapshot:       1200 * time.Millisecond,
	noticeSnapshotFailed: 2200 * time.Millisecond,
	noticeCameraMissing:  2200 * time.Millisecond,
}

var noticeText = map[noticeKind]string{
	noticeStart:          "Running, looking for face...",
	noticeFocus:          "Focused",
	noticeLeft:           "You left, streak ended",
	noticeBest:           "New best streak!",
	noticeSnapshot:       "Snapshot saved",
	noticeSnapshotFailed: "Snapshot failed: could not capture frame",
	noticeCameraMissing:  "Camera not available",
}

// notice is a transient message shown until it expires.
type notice struct {
	text    string
	expires time.Time
}

func newNotice(now time.Time, kind noticeKind) notice {
	return notice{text: noticeText[kind], expires: now.Add(noticeTTL[kind])}
}

func (n notice) textAt(now time.Time) string {
	if n.text == "" || !now.Before(n.expires) {
		return ""
	}
	return n.text
}

// noticeFor picks the message for an engine event. Sessions ended by Stop
// get no message of their own.
func noticeFor(now time.Time, ev focus.Event) (notice, bool) {
	switch ev.Kind {
	case focus.FocusAcquired:
		return newNotice(now, noticeFocus), true
	case focus.RewardGranted:
		return notice{
			text:    fmt.Sprintf("Nice! +%d points", ev.Points),
			expires: now.Add(noticeTTL[noticeReward]),
		}, true
	case focus.NewBest:
		return newNotice(now, noticeBest), true
	case focus.SessionEnded:
		if ev.Reason == focus.EndTimeout {
			return newNotice(now, noticeLeft), true
		}
	}
	return notice{}, false
}
