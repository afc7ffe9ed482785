// Package notify decides when a status flip warrants a user-facing
// notification and delivers it best-effort to the desktop.
package notify

import (
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Status is the previously observed state of a store.
type Status int

const (
	StatusUnknown Status = iota
	StatusOffline
	StatusOnline
)

// StatusOf maps a repository observation to a Status.
func StatusOf(known, online bool) Status {
	if !known {
		return StatusUnknown
	}
	if online {
		return StatusOnline
	}
	return StatusOffline
}

// ShouldNotify reports whether the transition from prev to the new online
// value is user-visible. First observations and repeats are silent; only a
// flip between two known states notifies.
func ShouldNotify(prev Status, online bool) bool {
	switch prev {
	case StatusUnknown:
		return false
	case StatusOnline:
		return !online
	default:
		return online
	}
}

// Sender delivers one desktop notification.
type Sender interface {
	Send(title, message string) error
}

// DesktopSender sends OS notifications via beeep.
type DesktopSender struct{}

func (DesktopSender) Send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier wraps a Sender with a runtime on/off toggle and asynchronous,
// failure-swallowing delivery. A delivery error never reaches the caller.
type Notifier struct {
	sender  Sender
	logger  *zap.Logger
	enabled atomic.Bool
}

// New builds a notifier. A nil sender disables delivery entirely.
func New(sender Sender, enabled bool, logger *zap.Logger) *Notifier {
	n := &Notifier{sender: sender, logger: logger}
	n.enabled.Store(enabled)
	return n
}

// Enabled reports the current toggle state.
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

// SetEnabled flips the runtime toggle.
func (n *Notifier) SetEnabled(v bool) {
	n.enabled.Store(v)
}

// Toggle inverts the toggle and returns the new state.
func (n *Notifier) Toggle() bool {
	for {
		cur := n.enabled.Load()
		if n.enabled.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// StatusChanged fires a notification for a store flip. Delivery runs in its
// own goroutine so a slow or failing notification daemon cannot stall the
// polling cycle.
func (n *Notifier) StatusChanged(number string, online bool) {
	if n.sender == nil || !n.enabled.Load() {
		return
	}
	status := "OFFLINE"
	if online {
		status = "ONLINE"
	}
	message := fmt.Sprintf("Store %s status is now: %s", number, status)
	go func() {
		if err := n.sender.Send("Store Status Change", message); err != nil && n.logger != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("store", number),
				zap.Error(err))
		}
	}()
}
