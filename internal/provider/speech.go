package provider

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
)

// Speech builds and fetches remote text-to-speech audio.
type Speech struct {
	client  *http.Client
	baseURL string
}

func NewSpeech(client *http.Client, baseURL string) *Speech {
	if client == nil {
		client = http.DefaultClient
	}
	return &Speech{client: client, baseURL: baseURL}
}

// AudioURL is the remote voice for text in lang. The remote speed is capped
// at 1; faster playback is applied by the client.
func (s *Speech) AudioURL(text, lang string, speed float64) string {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", strconv.FormatFloat(math.Min(speed, 1), 'f', -1, 64))
	return s.baseURL + "?" + q.Encode()
}

// Audio is an open remote audio stream. The caller closes Body.
type Audio struct {
	ContentType string
	Body        io.ReadCloser
}

func (s *Speech) Fetch(ctx context.Context, text, lang string, speed float64) (*Audio, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.AudioURL(text, lang, speed), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &Audio{ContentType: contentType, Body: resp.Body}, nil
}
