package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
	"github.com/9531lyj/AutoCheckBJMF/internal/model"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

// userAgent mimics the WeChat in-app browser; the platform serves the
// student pages only to that client.
const userAgent = "Mozilla/5.0 (Linux; Android 9; AKT-AK47 Build/USER-AK47; wv) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/116.0.0.0 Mobile Safari/537.36 " +
	"XWEB/1160065 MMWEBSDK/20231202 MMWEBID/1136 MicroMessenger/8.0.47.2560(0x28002F35) " +
	"WeChat/arm64 Weixin NetType/4G Language/zh_CN ABI/arm64"

// SuccessOutcome is the canonical success string on the submission result
// page ("check-in succeeded").
const SuccessOutcome = "签到成功"

// Client speaks the platform wire protocol for one configured course.
type Client struct {
	baseURL    string
	classID    string
	acc        string
	debug      bool
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Platform.BaseURL,
		classID: cfg.Class,
		acc:     cfg.Acc,
		debug:   cfg.Debug,
		httpClient: &http.Client{
			Timeout: cfg.Platform.Timeout,
		},
		log: logger.Get(),
	}
}

func (c *Client) courseURL() string {
	return c.baseURL + "/student/course/" + c.classID
}

func (c *Client) setHeaders(req *http.Request, account model.Account) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("X-Requested-With", "com.tencent.mm")
	req.Header.Set("Referer", c.courseURL())
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cookie", account.Cookie)
}

// FetchTasks retrieves the course check-in listing for one account and
// returns the pending tasks in GPS-then-QR discovery order. A rejected
// session (error page behind a 200) is reported as ErrSessionRejected.
func (c *Client) FetchTasks(ctx context.Context, account model.Account) ([]model.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.courseURL()+"/punchs", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	c.setHeaders(req, account)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRetryableError(err, "listing request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewRetryableError(
			fmt.Errorf("%w: %d", apperrors.ErrPlatformStatus, resp.StatusCode),
			"listing returned non-200")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewRetryableError(err, "failed to read listing body")
	}
	html := string(body)

	if c.debug {
		c.log.Debug().Str("label", account.Label).Str("body", html).Msg("Listing response")
	}

	if sessionRejected(html) {
		return nil, apperrors.ErrSessionRejected
	}

	return DiscoverTasks(html), nil
}

// sessionRejected detects the platform error page that comes back with a
// 200 status when the session cookie has expired.
func sessionRejected(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	title := doc.Find("title").First().Text()
	return strings.Contains(title, "出错")
}

// Submit completes one check-in task. The returned outcome is the text of
// the result marker on the response page, or empty when the marker is
// absent (request accepted, outcome unknown).
func (c *Client) Submit(ctx context.Context, account model.Account, task model.Task, lat, lng float64) (string, error) {
	form := url.Values{
		"id":       {task.ID},
		"lat":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng":      {strconv.FormatFloat(lng, 'f', -1, 64)},
		"acc":      {c.acc},
		"res":      {""},
		"gps_addr": {""},
	}

	submitURL := c.baseURL + "/student/punchs/course/" + c.classID + "/" + task.ID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	c.setHeaders(req, account)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewRetryableError(err, "submit request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewRetryableError(
			fmt.Errorf("%w: %d", apperrors.ErrPlatformStatus, resp.StatusCode),
			"submit returned non-200")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewRetryableError(err, "failed to read submit body")
	}

	if c.debug {
		c.log.Debug().Str("label", account.Label).Str("task_id", task.ID).Str("body", string(body)).Msg("Submit response")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(doc.Find("div#title").First().Text()), nil
}
