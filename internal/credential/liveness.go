package credential

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
)

// Liveness checks whether a raw credential still maps to a logged-in
// session on the platform.
type Liveness interface {
	Alive(ctx context.Context, raw string) bool
}

// Validator implements Liveness by requesting the student landing page
// with the session cookie and checking where the platform redirects to. A
// dead session bounces to the login page.
type Validator struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewValidator(baseURL string, timeout time.Duration) *Validator {
	return &Validator{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Get(),
	}
}

func (v *Validator) Alive(ctx context.Context, raw string) bool {
	account, ok := Parse(raw)
	if !ok {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/student", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Cookie", account.Cookie)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.log.Debug().Err(err).Str("label", account.Label).Msg("Liveness probe failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	// A valid session stays on a /student page; an expired one is
	// redirected to the login form.
	finalURL := resp.Request.URL.String()
	return strings.Contains(finalURL, "student") && !strings.Contains(finalURL, "login")
}
