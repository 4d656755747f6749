// Package provider wraps the public translation and text-to-speech
// endpoints the reader relies on.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// TranslationFailed is returned in place of a translation on any failure.
const TranslationFailed = "Error."

type Translator struct {
	client     *http.Client
	baseURL    string
	sourceLang string
	targetLang string
	limiter    *rate.Limiter
	logger     *log.Logger
}

type TranslatorOptions struct {
	BaseURL           string
	SourceLang        string
	TargetLang        string
	RequestsPerSecond float64
}

func NewTranslator(client *http.Client, opts TranslatorOptions, logger *log.Logger) *Translator {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Translator{
		client:     client,
		baseURL:    opts.BaseURL,
		sourceLang: opts.SourceLang,
		targetLang: opts.TargetLang,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Translate returns the target-language text for text, or
// TranslationFailed. It never returns an error.
func (t *Translator) Translate(ctx context.Context, text string) string {
	translated, err := t.translate(ctx, text)
	if err != nil {
		t.logger.Warn("translation failed", "err", err)
		return TranslationFailed
	}
	return translated
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", t.sourceLang)
	q.Set("tl", t.targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return parseTranslation(body)
}

// parseTranslation joins the first element of every segment in the
// response's first array.
func parseTranslation(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("decode segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	return b.String(), nil
}
