// Package transcript holds the finalized chat messages of a conversation.
package transcript

import (
	"errors"
	"sync"
)

type Sender string

const (
	SenderAvatar Sender = "avatar"
	SenderUser   Sender = "user"
)

var ErrEmptyMessage = errors.New("message text is empty")

// Message is a finalized transcript line. It is a value type so a message
// handed out by the log can never change the log's copy.
type Message struct {
	Text   string
	Sender Sender
}

// Log is an append-only ordered sequence of messages. Append order is the
// only ordering it guarantees.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(message Message) error {
	if message.Text == "" {
		return ErrEmptyMessage
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
	return nil
}

// Messages returns a point-in-time copy of the log.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	messages := make([]Message, len(l.messages))
	copy(messages, l.messages)
	return messages
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Clear empties the log. Only explicit user action should call it.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}
