package reasoning

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport serves canned responses in order.
type scriptedTransport struct {
	statuses []int
	bodies   []string
	calls    int
}

func (tr *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	i := tr.calls
	tr.calls++
	return &http.Response{
		StatusCode: tr.statuses[i],
		Body:       io.NopCloser(strings.NewReader(tr.bodies[i])),
		Header:     make(http.Header),
	}, nil
}

const okBody = `{"content":[{"text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`

func TestNilClientDisabled(t *testing.T) {
	c := NewClient("", "model", time.Second, 10)
	require.Nil(t, c)
	assert.False(t, c.Enabled())

	_, err := c.Complete(context.Background(), "system", "user", 10)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestReserveRateLimit(t *testing.T) {
	c := NewClient("key", "model", time.Second, 2)
	require.NoError(t, c.reserve())
	require.NoError(t, c.reserve())
	assert.ErrorIs(t, c.reserve(), ErrBackend)
}

func TestCompleteRetryConsumesRateSlot(t *testing.T) {
	c := NewClient("key", "model", time.Second, 5)
	tr := &scriptedTransport{
		statuses: []int{http.StatusInternalServerError, http.StatusOK},
		bodies:   []string{`{"error":"boom"}`, okBody},
	}
	c.httpClient = &http.Client{Transport: tr}

	text, err := c.Complete(context.Background(), "system", "user", 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, tr.calls)

	c.mu.Lock()
	count := c.callCount
	c.mu.Unlock()
	assert.Equal(t, 2, count, "the retried request counts against the limit")
}

func TestCompleteRetrySkippedAtRateLimit(t *testing.T) {
	c := NewClient("key", "model", time.Second, 1)
	tr := &scriptedTransport{
		statuses: []int{http.StatusInternalServerError, http.StatusOK},
		bodies:   []string{`{"error":"boom"}`, okBody},
	}
	c.httpClient = &http.Client{Transport: tr}

	_, err := c.Complete(context.Background(), "system", "user", 10)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 1, tr.calls, "no slot left, no second request")
}
