package keepalive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// wakeButtonText matches the button a sleeping hosted app shows.
const wakeButtonText = "get this app back up"

// BrowserPinger visits pages in headless Chrome so that client-side
// scripts run, and presses the wake-up button when one is shown.
type BrowserPinger struct {
	bin  string
	wait time.Duration

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
}

// NewBrowserPinger creates a BrowserPinger. bin is the Chrome binary
// (empty lets rod find or download one); wait is how long each page is
// given to run its scripts.
func NewBrowserPinger(bin string, wait time.Duration) *BrowserPinger {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &BrowserPinger{bin: bin, wait: wait}
}

func (p *BrowserPinger) connect(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return p.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true).Set("disable-gpu")
	if p.bin != "" {
		l = l.Bin(p.bin)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	p.launch, p.browser = l, browser
	return browser, nil
}

// Ping implements Pinger.
func (p *BrowserPinger) Ping(ctx context.Context, url string) (Outcome, string, error) {
	browser, err := p.connect(ctx)
	if err != nil {
		return OutcomeFailed, "", err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return OutcomeFailed, "", err
	}
	defer page.Close()

	if err := page.Timeout(p.wait * 4).WaitLoad(); err != nil {
		return OutcomeFailed, "", fmt.Errorf("wait load: %w", err)
	}

	if btn, err := page.Timeout(p.wait).ElementR("button", "(?i)"+wakeButtonText); err == nil {
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return OutcomeFailed, "", fmt.Errorf("click wake-up button: %w", err)
		}
		return OutcomeWoken, fmt.Sprintf("Successfully woke up app at: %s", url), nil
	}

	// No button: the page is either awake or waking up on its own.
	select {
	case <-ctx.Done():
		return OutcomeFailed, "", ctx.Err()
	case <-time.After(p.wait):
	}
	return OutcomeVisited, fmt.Sprintf("Pinged app at: %s to wake it", url), nil
}

// Close shuts the browser down.
func (p *BrowserPinger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.launch.Cleanup()
	p.browser, p.launch = nil, nil
	return err
}
