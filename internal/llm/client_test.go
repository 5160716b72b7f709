package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(serverURL string) ConfigSource {
	return func() Config {
		return Config{
			APIKey:  "test-key",
			Model:   "test-model",
			BaseURL: serverURL,
		}
	}
}

// countingTransport counts round trips so tests can prove no request left
// the client.
type countingTransport struct {
	calls int
}

func (t *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls++
	return nil, errors.New("transport should not be used")
}

func TestComplete_Success(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  hi there  "}}]}`)
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)
	text, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})

	require.NoError(t, err)
	// Content is returned verbatim, no trimming.
	assert.Equal(t, "  hi there  ", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotBody.Model)
	assert.False(t, gotBody.Stream)
}

func TestComplete_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "oops")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)
	_, err := c.Complete(context.Background(), nil)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, "oops", serverErr.Body)
}

func TestComplete_DecodingError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)
	_, err := c.Complete(context.Background(), nil)

	var decodeErr *DecodingError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "not json at all", decodeErr.Body)
}

func TestComplete_NoMessageInResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"choice without message", `{"choices":[{"index":0,"finish_reason":"stop"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			c := NewClient(configFor(ts.URL), nil)
			text, err := c.Complete(context.Background(), nil)

			assert.ErrorIs(t, err, ErrNoMessageInResponse)
			assert.Empty(t, text)
		})
	}
}

func TestComplete_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // closed before use

	c := NewClient(configFor(ts.URL), nil)
	_, err := c.Complete(context.Background(), nil)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestComplete_InvalidEndpoint(t *testing.T) {
	c := NewClient(func() Config {
		return Config{APIKey: "k", Model: "m", BaseURL: "://not a url"}
	}, nil)

	_, err := c.Complete(context.Background(), nil)

	var endpointErr *InvalidEndpointError
	assert.ErrorAs(t, err, &endpointErr)
}

// TestComplete_EmptyAPIKeyStillSends pins the deliberate asymmetry: only
// the streaming path refuses an empty key.
func TestComplete_EmptyAPIKeyStillSends(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer ts.Close()

	c := NewClient(func() Config {
		return Config{APIKey: "", Model: "m", BaseURL: ts.URL}
	}, nil)

	text, err := c.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.True(t, called)
}

func TestCompleteStream_DecodesChunksInOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	var chunks []string
	text, err := c.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(delta string) {
		chunks = append(chunks, delta)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
	assert.Equal(t, "Hello", text)
}

func TestCompleteStream_ServerErrorNoChunks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "oops")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	var chunks []string
	_, err := c.CompleteStream(context.Background(), nil, func(delta string) {
		chunks = append(chunks, delta)
	})

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, "oops", serverErr.Body)
	assert.Empty(t, chunks)
}

func TestCompleteStream_MalformedLineSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"good\"}}]}\n")
		fmt.Fprint(w, "data: {not json}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" still good\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	var chunks []string
	text, err := c.CompleteStream(context.Background(), nil, func(delta string) {
		chunks = append(chunks, delta)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"good", " still good"}, chunks)
	assert.Equal(t, "good still good", text)
}

func TestCompleteStream_FullMessageReplacesAccumulator(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n")
		// A non-streaming-shaped payload despite stream:true.
		fmt.Fprint(w, "data: {\"choices\":[{\"message\":{\"content\":\"the whole answer\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	var chunks []string
	text, err := c.CompleteStream(context.Background(), nil, func(delta string) {
		chunks = append(chunks, delta)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"partial", "the whole answer"}, chunks)
	assert.Equal(t, "the whole answer", text)
}

func TestCompleteStream_EmptyAPIKeyNeverSends(t *testing.T) {
	transport := &countingTransport{}
	c := NewClient(func() Config {
		return Config{APIKey: "", Model: "m", BaseURL: "http://localhost:1"}
	}, &http.Client{Transport: transport})

	_, err := c.CompleteStream(context.Background(), nil, func(string) {
		t.Fatal("onChunk must not be called")
	})

	assert.ErrorIs(t, err, ErrEmptyAPIKey)
	assert.Zero(t, transport.calls)
}

func TestCompleteStream_EmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	_, err := c.CompleteStream(context.Background(), nil, func(string) {
		t.Fatal("onChunk must not be called")
	})

	var streamErr *StreamError
	assert.ErrorAs(t, err, &streamErr)
}

func TestCompleteStream_DeltaAbsentVsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Role-only first frame carries no content field; it must not
		// produce a chunk. An explicit empty string must.
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer ts.Close()

	c := NewClient(configFor(ts.URL), nil)

	var chunks []string
	text, err := c.CompleteStream(context.Background(), nil, func(delta string) {
		chunks = append(chunks, delta)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"", "x"}, chunks)
	assert.Equal(t, "x", text)
}
