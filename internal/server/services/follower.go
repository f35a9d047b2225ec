package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/logging"
)

// RedirectFollower resolves a destination through upstream 3xx hops so the
// client is sent straight to the final page. It never touches binding state.
type RedirectFollower struct {
	client  *http.Client
	maxHops int
	logger  logging.Logger
}

func NewRedirectFollower(maxHops int, timeout time.Duration, l logging.Logger) *RedirectFollower {
	return &RedirectFollower{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops: maxHops,
		logger:  l.With("module", "follower"),
	}
}

// Follow returns the last URL reached after at most maxHops redirects.
// Any failure stops the walk and returns the last URL known to be good.
func (f *RedirectFollower) Follow(ctx context.Context, start string) string {
	current := start

	for hop := 0; hop < f.maxHops; hop++ {
		next, ok := f.step(ctx, current)
		if !ok {
			break
		}
		current = next
	}

	if current != start {
		f.logger.Debug(ctx, "followed upstream redirects", "from", start, "to", current)
	}
	return current
}

func (f *RedirectFollower) step(ctx context.Context, current string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
	if err != nil {
		return "", false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn(ctx, "upstream unreachable, keeping last url", "url", current, "error", err)
		return "", false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return "", false
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", false
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
