// Package llm implements the chat-completion client for OpenAI-compatible
// endpoints, in non-streaming and streaming (Server-Sent-Events) modes.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// maxLineSize bounds a single SSE line (1MB).
const maxLineSize = 1024 * 1024

// Message is a single entry of the outgoing chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config is the endpoint configuration read at call time, so settings
// changes take effect on the next request without rebuilding the client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ConfigSource supplies the current configuration for each request.
type ConfigSource func() Config

// Client talks to a chat-completion endpoint. Each call is independent;
// the client holds no per-conversation state and is safe for concurrent
// use.
type Client struct {
	config ConfigSource
	client *http.Client
}

// NewClient creates a client. A nil httpClient gets a default with a
// generous timeout; tests inject a client with a short one to exercise
// error propagation.
func NewClient(config ConfigSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		config: config,
		client: httpClient,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse keeps Message a pointer so a choice that carries no message
// object at all can be told apart from one with empty content.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// streamChunk covers both shapes a stream line can take: an incremental
// delta, or a full non-streaming-shaped message that some servers send
// despite stream:true. Delta content is a pointer so an absent field can be
// told apart from an empty string.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) newRequest(ctx context.Context, cfg Config, messages []Message, stream bool) (*http.Request, error) {
	endpoint, err := url.JoinPath(cfg.BaseURL, "chat", "completions")
	if err != nil {
		return nil, &InvalidEndpointError{URL: cfg.BaseURL, Err: err}
	}

	body, err := json.Marshal(chatRequest{
		Model:    cfg.Model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &InvalidEndpointError{URL: cfg.BaseURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// Complete issues a non-streaming completion and returns the first choice's
// message content verbatim.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	cfg := c.config()

	req, err := c.newRequest(ctx, cfg, messages, false)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ServerError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &DecodingError{Err: err, Body: string(raw)}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return "", ErrNoMessageInResponse
	}

	return parsed.Choices[0].Message.Content, nil
}

// CompleteStream issues a streaming completion. onChunk is invoked once per
// decoded text delta, in stream order, always from the same goroutine, and
// never after CompleteStream returns. The returned string is the
// accumulated full response.
//
// The streaming path refuses to run without an API key. The non-streaming
// path has no such guard; the asymmetry is deliberate and mirrors how the
// endpoint treats the two request kinds.
func (c *Client) CompleteStream(ctx context.Context, messages []Message, onChunk func(string)) (string, error) {
	cfg := c.config()
	if cfg.APIKey == "" {
		return "", ErrEmptyAPIKey
	}

	req, err := c.newRequest(ctx, cfg, messages, true)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &ServerError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var accumulated string
	sawEvent := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		sawEvent = true

		if payload == "[DONE]" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// One bad line never aborts the stream.
			log.Debug().Err(err).Str("line", payload).Msg("skipping malformed stream line")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		switch {
		case choice.Delta.Content != nil:
			accumulated += *choice.Delta.Content
			onChunk(*choice.Delta.Content)
		case choice.Message.Content != "":
			// A full message arriving mid-stream replaces everything
			// accumulated so far.
			accumulated = choice.Message.Content
			onChunk(choice.Message.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", &StreamError{Message: "reading response body", Err: err}
	}
	if !sawEvent {
		return "", &StreamError{Message: "response contained no events"}
	}

	return accumulated, nil
}
