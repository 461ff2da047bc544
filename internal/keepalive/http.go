package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// sleepMarkers are phrases hosted platforms show on a sleeping app.
var sleepMarkers = []string{"get this app back up", "app is sleeping"}

// HTTPPinger fetches the page with a plain GET request.
type HTTPPinger struct {
	client *http.Client
}

// NewHTTPPinger creates an HTTPPinger with the given request timeout.
func NewHTTPPinger(timeout time.Duration) *HTTPPinger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPinger{client: &http.Client{Timeout: timeout}}
}

// Ping implements Pinger.
func (p *HTTPPinger) Ping(ctx context.Context, url string) (Outcome, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OutcomeFailed, "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return OutcomeFailed, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OutcomeFailed, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return OutcomeFailed, "", err
	}

	content := strings.ToLower(string(body))
	for _, m := range sleepMarkers {
		if strings.Contains(content, m) {
			return OutcomeWoken, fmt.Sprintf("App was asleep at: %s, ping sent to wake it", url), nil
		}
	}
	return OutcomeAwake, fmt.Sprintf("App already awake at: %s", url), nil
}
