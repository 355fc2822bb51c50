// Package translate calls Tencent Cloud Machine Translation (TMT).
//
// Requests are signed with TC3-HMAC-SHA256. Results are cached by source
// language, target language and text, so the same sentence is only
// translated once per TTL.
package translate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations"
)

const (
	defaultEndpoint = "https://tmt.tencentcloudapi.com"
	service         = "tmt"
	action          = "TextTranslate"
	version         = "2018-03-21"
	defaultRegion   = "ap-guangzhou"
)

// Client translates text between Chinese, English and Japanese.
type Client struct {
	*integrations.Client
	endpoint  string
	region    string
	secretID  string
	secretKey string
	keyer     cache.Keyer
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(u string) Option { return func(c *Client) { c.endpoint = u } }

// WithRegion overrides the API region (default ap-guangzhou).
func WithRegion(r string) Option { return func(c *Client) { c.region = r } }

// WithKeyer sets the cache keyer.
func WithKeyer(k cache.Keyer) Option { return func(c *Client) { c.keyer = k } }

// NewClient creates a translation client. Results are cached for ttl.
func NewClient(backend cache.Cache, secretID, secretKey string, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		Client:    integrations.NewClient(backend, "", ttl, nil),
		endpoint:  defaultEndpoint,
		region:    defaultRegion,
		secretID:  secretID,
		secretKey: secretKey,
		keyer:     cache.NewDefaultKeyer(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether credentials are set.
func (c *Client) Configured() bool {
	return c.secretID != "" && c.secretKey != ""
}

type request struct {
	SourceText string `json:"SourceText"`
	Source     string `json:"Source"`
	Target     string `json:"Target"`
	ProjectID  int    `json:"ProjectId"`
}

type response struct {
	Response struct {
		TargetText string `json:"TargetText"`
		Source     string `json:"Source"`
		Target     string `json:"Target"`
		Error      *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}

// Translate returns text translated into target. An empty source means
// automatic detection.
func (c *Client) Translate(ctx context.Context, text, target, source string) (string, error) {
	if !c.Configured() {
		return "", errors.New(errors.ErrCodeNotConfigured, "translation credentials are not configured")
	}
	if source == "" {
		source = "auto"
	}

	var out string
	key := c.keyer.TranslateKey(source, target, text)
	err := c.Cached(ctx, key, false, &out, func() error {
		payload, err := json.Marshal(request{SourceText: text, Source: source, Target: target})
		if err != nil {
			return err
		}
		host := hostOf(c.endpoint)
		headers := Sign(c.secretID, c.secretKey, host, string(payload), c.now())
		headers["X-TC-Region"] = c.region

		var resp response
		if err := c.PostRaw(ctx, c.endpoint, headers, payload, &resp); err != nil {
			return err
		}
		if e := resp.Response.Error; e != nil {
			return errors.New(errors.ErrCodeUpstream, "tencent tmt: %s: %s", e.Code, e.Message)
		}
		out = resp.Response.TargetText
		return nil
	})
	if err != nil {
		if errors.GetCode(err) != "" {
			return "", err
		}
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "translation request failed")
	}
	return out, nil
}

// Sign returns the TC3-HMAC-SHA256 headers for a TextTranslate request
// carrying payload, sent to host at time ts.
func Sign(secretID, secretKey, host, payload string, ts time.Time) map[string]string {
	const contentType = "application/json; charset=utf-8"
	ts = ts.UTC()
	date := ts.Format("2006-01-02")
	timestamp := strconv.FormatInt(ts.Unix(), 10)

	canonical := strings.Join([]string{
		"POST",
		"/",
		"",
		"content-type:" + contentType,
		"host:" + host,
		"x-tc-action:" + strings.ToLower(action),
		"",
		"content-type;host;x-tc-action",
		sha256hex(payload),
	}, "\n")

	scope := date + "/" + service + "/tc3_request"
	toSign := strings.Join([]string{"TC3-HMAC-SHA256", timestamp, scope, sha256hex(canonical)}, "\n")

	kDate := hmacSHA256([]byte("TC3"+secretKey), date)
	kService := hmacSHA256(kDate, service)
	kSigning := hmacSHA256(kService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, toSign))

	return map[string]string{
		"Authorization": fmt.Sprintf("TC3-HMAC-SHA256 Credential=%s/%s, SignedHeaders=content-type;host;x-tc-action, Signature=%s",
			secretID, scope, signature),
		"Content-Type":   contentType,
		"Host":           host,
		"X-TC-Action":    action,
		"X-TC-Version":   version,
		"X-TC-Timestamp": timestamp,
	}
}

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, msg string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	}
	return u.Host
}
