package notifier

import (
	"time"

	"rankbot/internal/transport"
)

// Config controls delivery.
type Config struct {
	// Target is the chat (and optional forum thread) receiving notifications.
	Target        transport.ChatTarget
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
}

type HistoryItem struct {
	At   time.Time
	Text string
	Err  string
}
