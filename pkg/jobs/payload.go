package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the type tag of a job.
// Any non-empty string is valid on the wire, the dispatcher decides what it handles.
type Kind string

// Job kinds produced by the storefront.
const (
	KindOrderProcess   Kind = "order:process"
	KindEmailSend      Kind = "email:send"
	KindWebhookProcess Kind = "webhook:process"
	KindCacheWarm      Kind = "cache:warm"
)

// Payload is the typed data of a job.
type Payload interface {
	Kind() Kind
	Validate() error
}

// OrderProcess runs deferred bookkeeping for a placed order.
type OrderProcess struct {
	OrderID string `json:"orderId"`
}

func (OrderProcess) Kind() Kind { return KindOrderProcess }

func (p OrderProcess) Validate() error {
	if p.OrderID == "" {
		return &ValidationError{Kind: KindOrderProcess, Field: "orderId", Reason: "required"}
	}
	return nil
}

// EmailSend delivers a transactional email.
type EmailSend struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (EmailSend) Kind() Kind { return KindEmailSend }

func (p EmailSend) Validate() error {
	switch {
	case p.To == "":
		return &ValidationError{Kind: KindEmailSend, Field: "to", Reason: "required"}
	case p.Subject == "":
		return &ValidationError{Kind: KindEmailSend, Field: "subject", Reason: "required"}
	case p.Body == "":
		return &ValidationError{Kind: KindEmailSend, Field: "body", Reason: "required"}
	}
	return nil
}

// WebhookProcess relays an event received from a payment provider.
type WebhookProcess struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (WebhookProcess) Kind() Kind { return KindWebhookProcess }

func (p WebhookProcess) Validate() error {
	if p.Event == "" {
		return &ValidationError{Kind: KindWebhookProcess, Field: "event", Reason: "required"}
	}
	return nil
}

// CacheWarm populates cache entries ahead of traffic.
type CacheWarm struct {
	Keys []string `json:"keys"`
}

func (CacheWarm) Kind() Kind { return KindCacheWarm }

func (p CacheWarm) Validate() error {
	if len(p.Keys) == 0 {
		return &ValidationError{Kind: KindCacheWarm, Field: "keys", Reason: "must not be empty"}
	}
	return nil
}

// ErrUnknownKind is returned by Decode for job types without a payload definition.
var ErrUnknownKind = errors.New("unknown job type")

// Decode narrows the data of an envelope to its typed payload.
func Decode(env *Envelope) (Payload, error) {
	var p Payload
	var err error
	switch env.Type {
	case KindOrderProcess:
		p, err = decodeAs[OrderProcess](env)
	case KindEmailSend:
		p, err = decodeAs[EmailSend](env)
	case KindWebhookProcess:
		p, err = decodeAs[WebhookProcess](env)
	case KindCacheWarm:
		p, err = decodeAs[CacheWarm](env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeAs[P Payload](env *Envelope) (Payload, error) {
	var p P
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, &ValidationError{Kind: env.Type, Field: "data", Reason: err.Error()}
	}
	return p, nil
}

// ValidationError reports a malformed job payload.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s: %s", e.Kind, e.Field, e.Reason)
}
