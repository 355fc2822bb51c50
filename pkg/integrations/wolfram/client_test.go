package wolfram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/errors"
)

const successBody = `{"queryresult":{"success":true,"error":false,"pods":[
 {"title":"Input","subpods":[{"plaintext":"integral x^2 dx","img":{"src":"https://img/1.gif"}}]},
 {"title":"Result","subpods":[{"plaintext":"x^3/3 + constant","img":{"src":"https://img/2.gif"}}]}
]}}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(cache.NewNullCache(), "APPID", time.Hour)
	c.SetBaseURL(srv.URL)
	c.SetHTTPClient(srv.Client())
	return c
}

func TestQuery(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "APPID" || q.Get("output") != "json" || q.Get("units") != "metric" {
			t.Errorf("query = %v", q)
		}
		if q.Get("input") != "integrate x^2 dx" {
			t.Errorf("input = %q", q.Get("input"))
		}
		io.WriteString(w, successBody)
	})

	res, err := c.Query(context.Background(), " integrate x^2 dx ")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Pods) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Pods[1].Title != "Result" || res.Pods[1].Subpods[0].Plaintext != "x^3/3 + constant" {
		t.Errorf("pod = %+v", res.Pods[1])
	}
	if res.Pods[0].Subpods[0].ImageURL != "https://img/1.gif" {
		t.Errorf("image = %q", res.Pods[0].Subpods[0].ImageURL)
	}
}

func TestQueryTips(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"queryresult":{"success":false,"tips":{"text":"Check your spelling"}}}`, "Check your spelling"},
		{"array", `{"queryresult":{"success":false,"tips":[{"text":"a"},{"text":"b"}]}}`, "a\nb"},
		{"none", `{"queryresult":{"success":false}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			res, err := c.Query(context.Background(), "asdf")
			if err != nil {
				t.Fatal(err)
			}
			if res.Success || res.Tips != tt.want {
				t.Errorf("result = %+v, want tips %q", res, tt.want)
			}
		})
	}
}

func TestQueryErrors(t *testing.T) {
	if _, err := NewClient(nil, "", time.Hour).Query(context.Background(), "1+1"); !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("no appid: %v", err)
	}

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := c.Query(context.Background(), "   "); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("blank query: %v", err)
	}
	if _, err := c.Query(context.Background(), "1+1"); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("403: %v", err)
	}
}
