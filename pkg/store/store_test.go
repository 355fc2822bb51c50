package store

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"

	yerrors "github.com/yiyinbot/yiyin/pkg/errors"
)

type record struct {
	Names []string          `json:"names"`
	Count int               `json:"count"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"quotes/123/index", true},
		{"toggle/disabled", true},
		{"", false},
		{"/abs", false},
		{"a//b", false},
		{"a/../b", false},
		{"./a", false},
		{"trailing/", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateKey(%q) = %v, want valid=%v", tt.key, err, tt.valid)
		}
		if err != nil && !yerrors.Is(err, yerrors.ErrCodeInvalidInput) {
			t.Errorf("ValidateKey(%q) code = %s", tt.key, yerrors.GetCode(err))
		}
	}
}

func TestFileStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	var got record
	ok, err := s.Get(ctx, "a/b", &got)
	if err != nil || ok {
		t.Fatalf("Get missing = %v, %v", ok, err)
	}

	want := record{Names: []string{"小明", "小红"}, Count: 2}
	if err := s.Put(ctx, "a/b", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err = s.Get(ctx, "a/b", &got)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestFileStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	var r record
	err := s.Update(ctx, "counter", &r, func(exists bool) error {
		if exists {
			t.Error("first update should see a missing key")
		}
		r.Count = 1
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var r2 record
	err = s.Update(ctx, "counter", &r2, func(exists bool) error {
		if !exists || r2.Count != 1 {
			t.Errorf("second update: exists=%v count=%d", exists, r2.Count)
		}
		r2.Count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var final record
	_, _ = s.Get(ctx, "counter", &final)
	if final.Count != 2 {
		t.Errorf("count = %d, want 2", final.Count)
	}
}

func TestFileStoreUpdateAbort(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	_ = s.Put(ctx, "k", record{Count: 5})

	boom := errors.New("boom")
	var r record
	err := s.Update(ctx, "k", &r, func(bool) error {
		r.Count = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	err = s.Update(ctx, "k", &r, func(bool) error {
		r.Count = 42
		return ErrNoChange
	})
	if err != nil {
		t.Errorf("ErrNoChange should be swallowed, got %v", err)
	}

	var got record
	_, _ = s.Get(ctx, "k", &got)
	if got.Count != 5 {
		t.Errorf("count = %d, want unchanged 5", got.Count)
	}
}

func TestFileStoreUpdateResetsValue(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	_ = s.Put(ctx, "k", record{Tags: map[string]string{"a": "1"}})

	r := record{Tags: map[string]string{"stale": "x"}, Count: 7}
	_ = s.Update(ctx, "k", &r, func(bool) error { return ErrNoChange })
	if _, ok := r.Tags["stale"]; ok || r.Count != 0 {
		t.Errorf("value not reset before load: %+v", r)
	}
}

func TestFileStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var r record
			if err := s.Update(ctx, "shared", &r, func(bool) error {
				r.Count++
				return nil
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var got record
	_, _ = s.Get(ctx, "shared", &got)
	if got.Count != n {
		t.Errorf("count = %d, want %d (lost updates)", got.Count, n)
	}
}

func TestFileStoreDeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	for _, k := range []string{"quotes/2/index", "quotes/1/index", "quotes/1/members", "toggle/disabled"} {
		if err := s.Put(ctx, k, 1); err != nil {
			t.Fatal(err)
		}
	}
	// Update leaves a lock file next to the record; it must not be listed.
	var n int
	_ = s.Update(ctx, "quotes/1/index", &n, func(bool) error { return nil })

	keys, err := s.Keys(ctx, "quotes/1/")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"quotes/1/index", "quotes/1/members"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	if err := s.Delete(ctx, "quotes/1/index"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "quotes/1/index"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
	all, _ := s.Keys(ctx, "")
	if len(all) != 3 {
		t.Errorf("Keys(\"\") = %v, want 3 keys", all)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "sqlite"})
	if !yerrors.Is(err, yerrors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestOpenFileDefault(t *testing.T) {
	s, err := Open(context.Background(), Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open default = %T, want *FileStore", s)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("YIYIN_TEST_REDIS")
	if addr == "" {
		t.Skip("YIYIN_TEST_REDIS not set")
	}
	s, err := Open(context.Background(), Options{Backend: BackendRedis, RedisAddr: addr, RedisPrefix: "yiyin-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseBackend(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("YIYIN_TEST_MONGO")
	if uri == "" {
		t.Skip("YIYIN_TEST_MONGO not set")
	}
	s, err := Open(context.Background(), Options{Backend: BackendMongo, MongoURI: uri, MongoDatabase: "yiyin_test"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseBackend(t, s)
}

func exerciseBackend(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	const key = "test/counter"
	_ = s.Delete(ctx, key)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var r record
			if err := s.Update(ctx, key, &r, func(bool) error { r.Count++; return nil }); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var got record
	if ok, err := s.Get(ctx, key, &got); err != nil || !ok || got.Count != 10 {
		t.Errorf("Get = %+v, %v, %v; want count 10", got, ok, err)
	}
	keys, err := s.Keys(ctx, "test/")
	if err != nil || len(keys) == 0 {
		t.Errorf("Keys = %v, %v", keys, err)
	}
	_ = s.Delete(ctx, key)
}
