package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-chat-backend/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*AnthropicAdapter)(nil)

// AnthropicAdapter implements adapter.AIServiceAdapter against the Anthropic
// Messages API. Base URL defaults to https://api.anthropic.com/v1.
// Messages path: /messages. Auth header: x-api-key.
type AnthropicAdapter struct {
	apiKey string
	base   string
	model  string
	maxOut int
	client *http.Client
}

const anthropicVersion = "2023-06-01"

func NewAnthropicAdapter(apiKey, model, base string) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key empty")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if base == "" {
		base = "https://api.anthropic.com/v1"
	}
	return &AnthropicAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		maxOut: 8192,
		client: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (a *AnthropicAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/models", nil)
	a.setHeaders(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		// The models endpoint is newer than the messages one; degrade to the
		// configured default instead of failing the picker.
		return []string{a.model}, nil
	}
	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(payload.Data))
	for _, m := range payload.Data {
		if m.ID != "" {
			out = append(out, m.ID)
		}
	}
	if len(out) == 0 {
		out = []string{a.model}
	}
	return out, nil
}

func (a *AnthropicAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := a.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (a *AnthropicAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	resp, err := a.post(ctx, model, messages, false)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage anthropicUsage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", adapter.Usage{}, err
	}
	var b strings.Builder
	for _, c := range payload.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", adapter.Usage{}, errors.New("anthropic: empty completion")
	}
	return b.String(), payload.Usage.toPort(), nil
}

// StreamChat consumes the Messages API SSE stream. Text arrives in
// content_block_delta events; input tokens ride on message_start and output
// tokens on the final message_delta.
func (a *AnthropicAdapter) StreamChat(ctx context.Context, model string, messages []adapter.Message, onDelta adapter.StreamHandler) (string, adapter.Usage, error) {
	resp, err := a.post(ctx, model, messages, true)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	defer resp.Body.Close()

	var (
		full  strings.Builder
		usage adapter.Usage
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		var ev struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Message struct {
				Usage anthropicUsage `json:"usage"`
			} `json:"message"`
			Usage anthropicUsage `json:"usage"`
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue // keep-alives and unknown events
		}
		switch ev.Type {
		case "message_start":
			usage.PromptTokens = ev.Message.Usage.InputTokens
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				full.WriteString(ev.Delta.Text)
				if err := onDelta(ev.Delta.Text); err != nil {
					return "", adapter.Usage{}, err
				}
			}
		case "message_delta":
			usage.CompletionTokens = ev.Usage.OutputTokens
		case "error":
			return "", adapter.Usage{}, fmt.Errorf("anthropic stream: %s", ev.Error.Message)
		}
	}
	if err := sc.Err(); err != nil {
		return "", adapter.Usage{}, err
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return full.String(), usage, nil
}

func (a *AnthropicAdapter) post(ctx context.Context, model string, messages []adapter.Message, stream bool) (*http.Response, error) {
	if model == "" {
		model = a.model
	}
	reqBody := struct {
		Model     string            `json:"model"`
		MaxTokens int               `json:"max_tokens"`
		Messages  []adapter.Message `json:"messages"`
		Stream    bool              `json:"stream,omitempty"`
	}{Model: model, MaxTokens: a.maxOut, Messages: messages, Stream: stream}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/messages", bytes.NewReader(b))
	a.setHeaders(req)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("anthropic http %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("anthropic http %d", resp.StatusCode)
	}
	return resp, nil
}

func (a *AnthropicAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u anthropicUsage) toPort() adapter.Usage {
	return adapter.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
}
