// internal/domain/channel/channel.go
package channel

import (
	"context"
	"fmt"
)

// Type identifies a notification transport. The set is closed: stage
// definitions and adapters may only use one of the constants below.
type Type string

const (
	TypePush  Type = "push"
	TypeSMS   Type = "sms"
	TypeVoice Type = "voice"
)

// Valid reports whether t is one of the supported channel types.
func (t Type) Valid() bool {
	switch t {
	case TypePush, TypeSMS, TypeVoice:
		return true
	}
	return false
}

// SendResult is the structured outcome of a dispatch attempt. Adapters
// never panic or let provider errors escape their boundary; every failure
// is converted into a result with Success=false and Err set.
type SendResult struct {
	Success           bool
	ProviderMessageID string
	Err               error
}

// Adapter is the uniform contract over heterogeneous notification
// transports. Recipient is a channel-specific address (chat id for push,
// phone number for SMS and voice).
type Adapter interface {
	Send(ctx context.Context, recipient string, message string) SendResult
}

// ErrUnsupported is returned inside a SendResult when no adapter is
// registered for the requested channel type.
var ErrUnsupported = fmt.Errorf("unsupported notification channel")

// Registry dispatches sends to the adapter registered for a channel type.
// Lookup is by the closed Type set, not by free-form string tags.
type Registry struct {
	adapters map[Type]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Type]Adapter)}
}

// Register binds an adapter to a channel type, replacing any previous
// binding for that type.
func (r *Registry) Register(t Type, a Adapter) {
	r.adapters[t] = a
}

// Send routes the message to the adapter for t. An unregistered or
// invalid type yields a failed SendResult wrapping ErrUnsupported so the
// caller's retry logic stays channel-agnostic.
func (r *Registry) Send(ctx context.Context, t Type, recipient, message string) SendResult {
	a, ok := r.adapters[t]
	if !ok {
		return SendResult{Success: false, Err: fmt.Errorf("%w: %s", ErrUnsupported, t)}
	}
	return a.Send(ctx, recipient, message)
}
