// Package notice carries user-facing notifications. It is the single
// side-channel through which recovered failures reach the UI; nothing in the
// client surfaces errors to the user any other way.
package notice

import (
	"github.com/pitstophq/pitstop/internal/pubsub"
)

// Level determines how a notice is presented.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Notice is a single user-facing notification.
type Notice struct {
	Level Level
	Text  string
}

// Broker fans notices out to whoever is rendering them (the toaster).
type Broker = pubsub.Broker[Notice]

// NewBroker creates a notice broker.
func NewBroker() *Broker {
	return pubsub.NewBroker[Notice]()
}

// Error publishes an error-level notice.
func Error(b *Broker, text string) {
	if b == nil {
		return
	}
	b.Publish(pubsub.CreatedEvent, Notice{Level: LevelError, Text: text})
}

// Success publishes a success-level notice.
func Success(b *Broker, text string) {
	if b == nil {
		return
	}
	b.Publish(pubsub.CreatedEvent, Notice{Level: LevelSuccess, Text: text})
}

// Info publishes an info-level notice.
func Info(b *Broker, text string) {
	if b == nil {
		return
	}
	b.Publish(pubsub.CreatedEvent, Notice{Level: LevelInfo, Text: text})
}
