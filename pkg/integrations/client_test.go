package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/httputil"
)

func newTestClient(t *testing.T, h http.HandlerFunc, headers map[string]string) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(c, "test:", time.Hour, headers)
	client.SetHTTPClient(srv.Client())
	return client, srv.URL
}

func TestNewClientHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    map[string]string
	}{
		{"nil", nil, map[string]string{}},
		{"extra", map[string]string{"Authorization": "Bearer k"}, map[string]string{"Authorization": "Bearer k"}},
		{"override ua", map[string]string{"User-Agent": "custom/1"}, map[string]string{"User-Agent": "custom/1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(nil, "", 0, tt.headers)
			if _, ok := client.headers["User-Agent"]; !ok {
				t.Error("User-Agent missing")
			}
			if tt.headers == nil && !strings.HasPrefix(client.headers["User-Agent"], "yiyin/") {
				t.Errorf("default User-Agent = %q", client.headers["User-Agent"])
			}
			for k, v := range tt.want {
				if client.headers[k] != v {
					t.Errorf("%s = %q, want %q", k, client.headers[k], v)
				}
			}
		})
	}
}

func TestGetSendsHeaders(t *testing.T) {
	var got http.Header
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		json.NewEncoder(w).Encode(map[string]string{"result": "42"})
	}, map[string]string{"X-App": "default", "X-Override": "default"})

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), url+"/v2/query", map[string]string{"X-Override": "per-call"}, &resp)
	if err != nil {
		t.Fatal(err)
	}
	if resp["result"] != "42" {
		t.Errorf("resp = %v", resp)
	}
	if got.Get("X-App") != "default" || got.Get("X-Override") != "per-call" {
		t.Errorf("headers = %v", got)
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "yiyin/") {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
}

func TestGetBytesAndText(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x = 2"))
	}, nil)

	data, err := client.GetBytes(context.Background(), url)
	if err != nil || string(data) != "x = 2" {
		t.Errorf("GetBytes = %q, %v", data, err)
	}
	text, err := client.GetText(context.Background(), url)
	if err != nil || text != "x = 2" {
		t.Errorf("GetText = %q, %v", text, err)
	}
}

func TestPostRawKeepsBody(t *testing.T) {
	body := []byte(`{"SourceText":"你好","Source":"zh","Target":"en"}`)
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("X-TC-Action") != "TextTranslate" {
			t.Errorf("headers = %v", r.Header)
		}
		got, _ := io.ReadAll(r.Body)
		if string(got) != string(body) {
			t.Errorf("body = %s", got)
		}
		w.Write([]byte(`{"Response":{"TargetText":"Hello"}}`))
	}, nil)

	var resp struct {
		Response struct{ TargetText string }
	}
	if err := client.PostRaw(context.Background(), url, map[string]string{"X-TC-Action": "TextTranslate"}, body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response.TargetText != "Hello" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPostJSONNilResult(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]int
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in["n"] != 3 {
			t.Errorf("payload = %v, %v", in, err)
		}
		w.Write([]byte("ignored"))
	}, nil)

	if err := client.PostJSON(context.Background(), url, nil, map[string]int{"n": 3}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   error
		retryable bool
	}{
		{http.StatusOK, nil, false},
		{http.StatusNoContent, nil, false},
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusTooManyRequests, ErrNetwork, true},
		{http.StatusInternalServerError, ErrNetwork, true},
		{http.StatusBadGateway, ErrNetwork, true},
		{http.StatusBadRequest, ErrNetwork, false},
		{http.StatusForbidden, ErrNetwork, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := checkStatus(tt.code)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkStatus(%d) = %v", tt.code, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkStatus(%d) = %v, want %v", tt.code, err, tt.wantErr)
			}
			if httputil.IsRetryable(err) != tt.retryable {
				t.Errorf("checkStatus(%d) retryable = %v", tt.code, !tt.retryable)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	client, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	var resp map[string]string
	if err := client.Get(context.Background(), url, &resp); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCached(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {}, nil)
	ctx := context.Background()

	calls := 0
	fetch := func(v *string) func() error {
		return func() error {
			calls++
			*v = "hello"
			return nil
		}
	}

	var first, second, third string
	if err := client.Cached(ctx, "translate:zh-en:abc", false, &first, fetch(&first)); err != nil {
		t.Fatal(err)
	}
	if err := client.Cached(ctx, "translate:zh-en:abc", false, &second, fetch(&second)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || second != "hello" {
		t.Errorf("calls = %d, second = %q; want one fetch and a cached value", calls, second)
	}

	if err := client.Cached(ctx, "translate:zh-en:abc", true, &third, fetch(&third)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("refresh should bypass the cache, calls = %d", calls)
	}
}

func TestCachedErrors(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {}, nil)
	ctx := context.Background()

	var calls atomic.Int32
	var v string
	err := client.Cached(ctx, "wolfram:q", false, &v, func() error {
		calls.Add(1)
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) || calls.Load() != 1 {
		t.Errorf("err = %v after %d calls; want ErrNotFound without retry", err, calls.Load())
	}

	// Failures are not cached.
	err = client.Cached(ctx, "wolfram:q", false, &v, func() error {
		v = "ok"
		return nil
	})
	if err != nil || v != "ok" {
		t.Errorf("second fetch = %q, %v", v, err)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"test:translate:zh-en:abc": "test",
		"avatar:10001":             "avatar",
		"plain":                    "plain",
		":leading":                 ":leading",
	}
	for key, want := range tests {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}
