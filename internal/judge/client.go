package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Submission is a single entry of a user's submission history as the judge
// API reports it. IDs increase monotonically within one user's stream but
// are not comparable across users.
type Submission struct {
	ID                  int64   `json:"id"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
}

type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

type UserInfo struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Avatar    string `json:"avatar"`
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type problemsetResult struct {
	Problems []Problem `json:"problems"`
}

// Client wraps the external judge HTTP API. All calls share a single
// rate-limit window so sequential polling never exceeds the judge's
// implicit request budget.
type Client struct {
	client  *http.Client
	baseURL string

	mu          sync.Mutex
	rateLimit   time.Duration
	lastRequest time.Time
}

func NewClient(baseURL string, timeout, rateLimit time.Duration) *Client {
	return &Client{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		rateLimit: rateLimit,
	}
}

// UserStatus fetches a user's full submission history, newest first, the
// way the judge returns it. Records missing an ID or a problem identity are
// dropped individually rather than failing the whole call.
func (c *Client) UserStatus(ctx context.Context, handle string) ([]Submission, error) {
	endpoint := fmt.Sprintf("%s/user.status?handle=%s", c.baseURL, url.QueryEscape(handle))
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("user.status for %q: %w", handle, err)
	}

	var all []Submission
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("user.status for %q: decode: %w", handle, err)
	}

	subs := all[:0]
	for _, sub := range all {
		if sub.ID <= 0 || sub.Problem.ContestID <= 0 || sub.Problem.Index == "" {
			zap.S().Debugf("dropping malformed submission record for %s: %+v", handle, sub)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// UserInfos resolves a batch of handles in a single request.
func (c *Client) UserInfos(ctx context.Context, handles []string) ([]UserInfo, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/user.info?handles=%s", c.baseURL, url.QueryEscape(strings.Join(handles, ";")))
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("user.info: %w", err)
	}

	var infos []UserInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, fmt.Errorf("user.info: decode: %w", err)
	}
	return infos, nil
}

// Problemset fetches the full problem catalog.
func (c *Client) Problemset(ctx context.Context) ([]Problem, error) {
	raw, err := c.get(ctx, c.baseURL+"/problemset.problems")
	if err != nil {
		return nil, fmt.Errorf("problemset.problems: %w", err)
	}

	var result problemsetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("problemset.problems: decode: %w", err)
	}
	return result.Problems, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	if err := c.waitForWindow(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge API returned HTTP %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Status != "OK" {
		if envelope.Comment == "" {
			envelope.Comment = "judge API error"
		}
		return nil, fmt.Errorf("judge API: %s", envelope.Comment)
	}
	return envelope.Result, nil
}

// waitForWindow blocks until the rate-limit window since the previous
// request has elapsed, or the context is cancelled.
func (c *Client) waitForWindow(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.lastRequest.Add(c.rateLimit).Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
