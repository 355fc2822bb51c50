// Package wolfram queries the WolframAlpha Full Results API.
package wolfram

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations"
)

const defaultBaseURL = "https://api.wolframalpha.com/v2/query"

// Subpod is one answer fragment: a plaintext rendering and/or an image.
type Subpod struct {
	Plaintext string `json:"plaintext"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Pod is a titled group of subpods ("Input", "Result", "Plot", ...).
type Pod struct {
	Title   string   `json:"title"`
	Subpods []Subpod `json:"subpods"`
}

// Result is the decoded answer to a query. When Success is false, Tips may
// explain how to rephrase the question.
type Result struct {
	Success bool   `json:"success"`
	Pods    []Pod  `json:"pods,omitempty"`
	Tips    string `json:"tips,omitempty"`
}

// Client is a WolframAlpha client.
type Client struct {
	*integrations.Client
	baseURL string
	appID   string
	keyer   cache.Keyer
}

// NewClient creates a client for appID. Answers are cached for ttl.
func NewClient(backend cache.Cache, appID string, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, "", ttl, nil),
		baseURL: defaultBaseURL,
		appID:   appID,
		keyer:   cache.NewDefaultKeyer(),
	}
}

// SetBaseURL overrides the API URL.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Configured reports whether an app ID is set.
func (c *Client) Configured() bool { return c.appID != "" }

type apiResponse struct {
	QueryResult struct {
		Success bool `json:"success"`
		Error   any  `json:"error"`
		Pods    []struct {
			Title   string `json:"title"`
			Subpods []struct {
				Plaintext string `json:"plaintext"`
				Img       struct {
					Src string `json:"src"`
				} `json:"img"`
			} `json:"subpods"`
		} `json:"pods"`
		Tips json.RawMessage `json:"tips"`
	} `json:"queryresult"`
}

// Query asks WolframAlpha about input using metric units.
func (c *Client) Query(ctx context.Context, input string) (*Result, error) {
	if !c.Configured() {
		return nil, errors.New(errors.ErrCodeNotConfigured, "WolframAlpha API 未配置")
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty query")
	}

	var res Result
	err := c.Cached(ctx, c.keyer.WolframKey(input), false, &res, func() error {
		q := url.Values{
			"appid":  {c.appID},
			"input":  {input},
			"output": {"json"},
			"units":  {"metric"},
		}
		var raw apiResponse
		if err := c.Get(ctx, c.baseURL+"?"+q.Encode(), &raw); err != nil {
			return err
		}
		res = convert(raw)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "WolframAlpha query failed")
	}
	return &res, nil
}

func convert(raw apiResponse) Result {
	qr := raw.QueryResult
	res := Result{Success: qr.Success, Tips: parseTips(qr.Tips)}
	for _, p := range qr.Pods {
		pod := Pod{Title: p.Title}
		for _, sp := range p.Subpods {
			pod.Subpods = append(pod.Subpods, Subpod{Plaintext: sp.Plaintext, ImageURL: sp.Img.Src})
		}
		res.Pods = append(res.Pods, pod)
	}
	return res
}

// parseTips accepts both {"text": "..."} and [{"text": "..."}, ...].
func parseTips(raw json.RawMessage) string {
	type tip struct {
		Text string `json:"text"`
	}
	if len(raw) == 0 {
		return ""
	}
	var one tip
	if err := json.Unmarshal(raw, &one); err == nil {
		return one.Text
	}
	var many []tip
	if err := json.Unmarshal(raw, &many); err == nil {
		texts := make([]string, 0, len(many))
		for _, t := range many {
			if t.Text != "" {
				texts = append(texts, t.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}
