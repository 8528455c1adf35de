package dealer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"carbi-scraper/utils"

	"github.com/chromedp/chromedp"
)

// CookieSelectors are probed in order; the first visible match is clicked
var CookieSelectors = []string{
	`#onetrust-accept-btn-handler`,
	`.accept-cookies-button`,
	`button[aria-label="Accept Cookies"]`,
	`button[data-testid="cookie-policy-manage-accept-all"]`,
	`.cc-btn.cc-dismiss`,
	`[class*="cookie"] button`,
	`#accept-cookies`,
}

const (
	scrollStep     = 100
	scrollInterval = 100 * time.Millisecond
	// lazy loaders get this many intervals at the bottom to grow the page
	scrollSettleSteps = 10
	scrollMaxSteps    = 1500
)

// Pacer produces randomized human-like pauses
type Pacer struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	sleep func(context.Context, time.Duration) error
}

// NewPacer creates a Pacer seeded from the clock
func NewPacer() *Pacer {
	return &Pacer{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: utils.Sleep,
	}
}

// Between returns a random duration in [min, max]
func (p *Pacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rnd.Int63n(int64(max-min)+1))
}

// Pause sleeps for a random duration in [min, max]
func (p *Pacer) Pause(ctx context.Context, min, max time.Duration) error {
	return p.sleep(ctx, p.Between(min, max))
}

// Intn returns a random int in [0, n)
func (p *Pacer) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Intn(n)
}

// cookieScript clicks the first visible element matching one of selectors and
// returns that selector, or "" when nothing matched
func cookieScript(selectors []string) string {
	encoded, _ := json.Marshal(selectors)
	return fmt.Sprintf(`(function(sels) {
		for (var i = 0; i < sels.length; i++) {
			var el;
			try { el = document.querySelector(sels[i]); } catch (e) { continue; }
			if (!el) continue;
			var r = el.getBoundingClientRect();
			var st = window.getComputedStyle(el);
			if (r.width === 0 || r.height === 0 || st.visibility === 'hidden' || st.display === 'none') continue;
			el.click();
			return sels[i];
		}
		return '';
	})(%s)`, encoded)
}

// dismissCookieBanner is best effort; failures are only logged
func dismissCookieBanner(ctx context.Context, pacer *Pacer, logger *utils.Logger) {
	logger.Debug("Attempting to dismiss cookie banners...")
	var clicked string
	if err := chromedp.Run(ctx, chromedp.Evaluate(cookieScript(CookieSelectors), &clicked)); err != nil {
		logger.Debug("Cookie banner probe failed: %v", err)
		return
	}
	if clicked == "" {
		return
	}
	logger.Debug("Clicked cookie button: %s", clicked)
	_ = pacer.Pause(ctx, 500*time.Millisecond, time.Second)
}

type scrollPosition struct {
	Y      float64 `json:"y"`
	View   float64 `json:"view"`
	Height float64 `json:"height"`
}

// scrollTracker decides when the page has stopped growing
type scrollTracker struct {
	lastHeight float64
	stable     int
	steps      int
}

// observe records one scroll step and reports whether scrolling is done
func (t *scrollTracker) observe(p scrollPosition) bool {
	t.steps++
	if t.steps >= scrollMaxSteps {
		return true
	}
	grew := p.Height > t.lastHeight
	t.lastHeight = p.Height
	if grew || p.Y+p.View < p.Height-1 {
		t.stable = 0
		return false
	}
	t.stable++
	return t.stable >= scrollSettleSteps
}

// naturalScroll scrolls in fixed steps until no more content loads
func naturalScroll(ctx context.Context, logger *utils.Logger) error {
	logger.Debug("Scrolling page...")
	script := fmt.Sprintf(`(function() {
		window.scrollBy(0, %d);
		return {y: window.scrollY, view: window.innerHeight, height: document.body.scrollHeight};
	})()`, scrollStep)

	var tracker scrollTracker
	for {
		var pos scrollPosition
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &pos)); err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
		if tracker.observe(pos) {
			logger.Debug("Scrolling settled after %d steps (height %.0f)", tracker.steps, pos.Height)
			return nil
		}
		if err := utils.Sleep(ctx, scrollInterval); err != nil {
			return err
		}
	}
}
