package jobs

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	defer func() { now = time.Now }()
	now = func() time.Time { return time.Unix(1700000000, 123000000) }

	env, err := New(KindOrderProcess, OrderProcess{OrderID: "ord_123"})
	require.NoError(t, err)
	assert.Equal(t, KindOrderProcess, env.Type)
	assert.Equal(t, CurrentVersion, env.Version)
	assert.JSONEq(t, `{"orderId":"ord_123"}`, string(env.Data))
	assert.True(t, strings.HasPrefix(env.ID, "order:process-1700000000123-"), env.ID)
	assert.Equal(t, time.UTC, env.CreatedAt.Location())

	other, err := New(KindOrderProcess, OrderProcess{OrderID: "ord_123"})
	require.NoError(t, err)
	assert.NotEqual(t, env.ID, other.ID)
}

func TestNew_EmptyKind(t *testing.T) {
	env, err := New("", map[string]string{"a": "b"})
	assert.Nil(t, env)
	assert.True(t, errors.Is(err, ErrEmptyKind))
}

func TestNew_NilData(t *testing.T) {
	env, err := New("custom:noop", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(env.Data))
}

func TestRoundTrip(t *testing.T) {
	nested := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{1.0, "two", map[string]interface{}{"c": []interface{}{true, nil}}},
		},
	}
	cases := []struct {
		name string
		kind Kind
		data interface{}
	}{
		{"order", KindOrderProcess, OrderProcess{OrderID: "ord_1"}},
		{"email", KindEmailSend, EmailSend{To: "a@example.com", Subject: "Hi", Body: "Thanks"}},
		{"webhook", KindWebhookProcess, WebhookProcess{Event: "payment.succeeded", Payload: json.RawMessage(`{"id":"pi_1"}`)}},
		{"cache", KindCacheWarm, CacheWarm{Keys: []string{"products:featured", "categories"}}},
		{"nested", "custom:nested", nested},
		{"empty", "custom:empty", struct{}{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env, err := New(c.kind, c.data)
			require.NoError(t, err)
			buf, err := Marshal(env)
			require.NoError(t, err)
			got, err := Unmarshal(buf)
			require.NoError(t, err)
			assert.Equal(t, env.ID, got.ID)
			assert.Equal(t, env.Type, got.Type)
			assert.Equal(t, string(env.Data), string(got.Data))
			assert.True(t, env.CreatedAt.Equal(got.CreatedAt))
			assert.Equal(t, env.Version, got.Version)
		})
	}
}

func TestUnmarshal_Legacy(t *testing.T) {
	env, err := Unmarshal([]byte(`{"id":"email:send-1-x","type":"email:send","data":{"to":"a@b.c","subject":"s","body":"b"},"createdAt":"2024-01-02T03:04:05.678Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, KindEmailSend, env.Type)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 678000000, time.UTC), env.CreatedAt.UTC())
}

func TestUnmarshal_Malformed(t *testing.T) {
	for _, input := range []string{
		`not json`,
		`{"type":"order:process","data":{}}`,
		`{"id":"x","data":{}}`,
		`[1,2,3]`,
	} {
		_, err := Unmarshal([]byte(input))
		assert.True(t, errors.Is(err, ErrMalformed), input)
	}
}
