package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HTTPConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

func (c HTTPConfig) normalized() HTTPConfig {
	c.Name = normalize(c.Name)
	c.Endpoint = strings.TrimSuffix(strings.TrimSpace(c.Endpoint), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Model = strings.TrimSpace(c.Model)
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewOpenAI(cfg HTTPConfig) *OpenAI {
	cfg = cfg.normalized()
	return &OpenAI{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (o *OpenAI) Name() string { return o.cfg.Name }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (Completion, error) {
	start := time.Now()
	payload := map[string]any{
		"model": o.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := postJSON(ctx, o.client, o.cfg.Endpoint+"/chat/completions", payload, map[string]string{
		"Authorization": "Bearer " + o.cfg.APIKey,
	}, &out); err != nil {
		return Completion{}, fmt.Errorf("%s: %w", o.cfg.Name, err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, fmt.Errorf("%s: empty choices", o.cfg.Name)
	}
	return Completion{
		Provider:       o.cfg.Name,
		Text:           strings.TrimSpace(out.Choices[0].Message.Content),
		TokensUsed:     out.Usage.TotalTokens,
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}

// Anthropic talks to the messages API.
type Anthropic struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewAnthropic(cfg HTTPConfig) *Anthropic {
	cfg = cfg.normalized()
	return &Anthropic{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (a *Anthropic) Name() string { return a.cfg.Name }

func (a *Anthropic) Complete(ctx context.Context, prompt string) (Completion, error) {
	start := time.Now()
	payload := map[string]any{
		"model":      a.cfg.Model,
		"max_tokens": 2048,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := postJSON(ctx, a.client, a.cfg.Endpoint+"/messages", payload, map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}, &out); err != nil {
		return Completion{}, fmt.Errorf("%s: %w", a.cfg.Name, err)
	}
	for _, c := range out.Content {
		if strings.TrimSpace(c.Text) != "" {
			return Completion{
				Provider:       a.cfg.Name,
				Text:           strings.TrimSpace(c.Text),
				TokensUsed:     out.Usage.InputTokens + out.Usage.OutputTokens,
				ResponseTimeMs: int(time.Since(start).Milliseconds()),
			}, nil
		}
	}
	return Completion{}, fmt.Errorf("%s: empty content", a.cfg.Name)
}

func postJSON(ctx context.Context, httpClient *http.Client, url string, payload any, headers map[string]string, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 240 {
			msg = msg[:240]
		}
		return fmt.Errorf("provider request failed (%d): %s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("provider response parse error: %w", err)
	}
	return nil
}
