// Package jobs defines the job envelope exchanged between producers and the worker.
//
// Wire format
//
// Each envelope is a JSON object with the fields
// "id", "type", "data", "createdAt" and "version".
// The data field holds the payload of the job kind named by type.
// Envelopes written before the version field existed decode as version 1.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// CurrentVersion is the envelope version written by this package.
const CurrentVersion = 1

// Envelope is the unit of work stored on the queue.
// It must not be modified after it was pushed.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	Version   int             `json:"version"`
}

// ErrEmptyKind is returned when building an envelope without a type.
var ErrEmptyKind = errors.New("empty job type")

// now is replaced in tests.
var now = time.Now

// New builds an envelope for the given job type, serializing data as the payload.
// A nil data value becomes an empty object.
func New(kind Kind, data interface{}) (*Envelope, error) {
	if kind == "" {
		return nil, ErrEmptyKind
	}
	raw := json.RawMessage("{}")
	if data != nil {
		buf, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
		}
		raw = buf
	}
	ts := now().UTC().Round(0)
	return &Envelope{
		ID:        NewID(kind, ts),
		Type:      kind,
		Data:      raw,
		CreatedAt: ts,
		Version:   CurrentVersion,
	}, nil
}

// From builds an envelope carrying a typed payload.
func From(p Payload) (*Envelope, error) {
	return New(p.Kind(), p)
}

// NewID returns a job ID made of the type, the unix milliseconds and a random suffix.
// IDs are meant for tracing only.
func NewID(kind Kind, ts time.Time) string {
	return fmt.Sprintf("%s-%d-%s", kind, ts.UnixMilli(), xid.New().String())
}

// Marshal serializes an envelope to its wire format.
func Marshal(env *Envelope) ([]byte, error) {
	out := *env
	if len(out.Data) == 0 {
		out.Data = json.RawMessage("{}")
	}
	if out.Version == 0 {
		out.Version = CurrentVersion
	}
	return json.Marshal(&out)
}

// ErrMalformed is returned for entries that are not valid envelopes.
var ErrMalformed = errors.New("malformed envelope")

// Unmarshal parses the wire format of an envelope.
func Unmarshal(buf []byte) (*Envelope, error) {
	env := new(Envelope)
	if err := json.Unmarshal(buf, env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("{}")
	}
	return env, nil
}
