package access

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
	"github.com/ishiev/rtiles/pkg/metrics"
)

// AuthorityResolver queries the permission authority over HTTP. The
// request carries the session cookie; a 200 response grants access and
// any other status denies it. Transport failures and timeouts map to
// ErrAuthorityUnavailable so the caller can fail closed.
type AuthorityResolver struct {
	client     *http.Client
	serverURL  string
	cookieName string
	logger     logger.Logger
}

var _ Resolver = (*AuthorityResolver)(nil)

func NewAuthorityResolver(cfg config.Access, l logger.Logger) *AuthorityResolver {
	return &AuthorityResolver{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		serverURL:  strings.TrimRight(cfg.AuthorityURL, "/"),
		cookieName: cfg.CookieName,
		logger:     l,
	}
}

func (r *AuthorityResolver) Resolve(ctx context.Context, session Session, model string) (Decision, error) {
	url := r.serverURL
	if model != "" {
		url += "/" + model
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unknown, fmt.Errorf("failed to create authority request: %w", err)
	}

	if session.ID != "" {
		req.AddCookie(&http.Cookie{Name: r.cookieName, Value: session.ID})
	}

	r.logger.Debug("request to authority", "url", url)
	metrics.AccessResolverCalls.Inc()

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.AccessResolverFailures.Inc()
		r.logger.Error("failed to get response from authority", "url", url, "error", err)
		return Unknown, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		return Allowed, nil
	}
	return Denied, nil
}
