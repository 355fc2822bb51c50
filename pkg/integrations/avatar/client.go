// Package avatar downloads QQ user avatars.
package avatar

import (
	"context"
	"net/url"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/integrations"
)

const defaultURL = "https://q1.qlogo.cn/g"

// DefaultSize is the qlogo size selector for 140×140 avatars.
const DefaultSize = 140

// Client fetches avatars from qlogo.
type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
}

// NewClient creates an avatar client caching images for ttl.
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, "", ttl, nil),
		baseURL: defaultURL,
		keyer:   cache.NewDefaultKeyer(),
	}
}

// SetBaseURL overrides the avatar endpoint.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// URL returns the avatar URL for a QQ number.
func (c *Client) URL(userID string) string {
	q := url.Values{"b": {"qq"}, "nk": {userID}, "s": {"140"}}
	return c.baseURL + "?" + q.Encode()
}

// Fetch returns the avatar image bytes, or nil if it cannot be downloaded.
// Screenshot rendering substitutes a placeholder for nil avatars, so
// failures are not reported.
func (c *Client) Fetch(ctx context.Context, userID string) []byte {
	if userID == "" {
		return nil
	}
	var data []byte
	err := c.Cached(ctx, c.keyer.AvatarKey(userID), false, &data, func() error {
		b, err := c.GetBytes(ctx, c.URL(userID))
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil
	}
	return data
}
