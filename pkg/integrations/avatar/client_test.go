package avatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
)

func TestFetch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("nk") == "404" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("b") != "qq" || r.URL.Query().Get("s") != "140" {
			t.Errorf("query = %v", r.URL.Query())
		}
		w.Write([]byte("png:" + r.URL.Query().Get("nk")))
	}))
	defer srv.Close()

	fc, _ := cache.NewFileCache(t.TempDir())
	c := NewClient(fc, time.Hour)
	c.SetBaseURL(srv.URL)
	c.SetHTTPClient(srv.Client())
	ctx := context.Background()

	if got := string(c.Fetch(ctx, "10001")); got != "png:10001" {
		t.Errorf("Fetch = %q", got)
	}
	_ = c.Fetch(ctx, "10001")
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1 (second fetch cached)", n)
	}

	if got := c.Fetch(ctx, "404"); got != nil {
		t.Errorf("missing avatar = %q, want nil", got)
	}
	if got := c.Fetch(ctx, ""); got != nil {
		t.Errorf("empty id = %q, want nil", got)
	}
}
