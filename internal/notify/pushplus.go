// Package notify sends best-effort push notifications through
// pushplus.plus. Delivery failures are logged and swallowed; a missed
// notification must never fail a check-in.
package notify

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
)

const (
	pushURL   = "http://www.pushplus.plus/send"
	pushTitle = "班级魔法自动签到任务"
)

type Notifier struct {
	token      string
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

func New(token string) *Notifier {
	return &Notifier{
		token: token,
		url:   pushURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: logger.Get(),
	}
}

// Enabled reports whether notifications are configured and not disabled
// via the "off" sentinel.
func (n *Notifier) Enabled() bool {
	return n.token != "" && n.token != config.PushDisabled
}

// Send fires a notification with the given content. Best effort only.
func (n *Notifier) Send(ctx context.Context, content string) {
	if !n.Enabled() {
		return
	}

	query := url.Values{
		"token":   {n.token},
		"title":   {pushTitle},
		"content": {content},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.url+"?"+query.Encode(), nil)
	if err != nil {
		n.log.Debug().Err(err).Msg("Failed to build push request")
		return
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Debug().Err(err).Msg("Push notification failed")
		return
	}
	resp.Body.Close()
}
