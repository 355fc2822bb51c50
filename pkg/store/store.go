// Package store persists the bot's small JSON records (quote indexes,
// member lists, feature toggles) behind a key-value interface.
//
// Keys are slash-separated paths such as "quotes/123456/index". Values are
// any JSON-encodable Go value. Every backend serializes [Store.Update] per
// key, so two commands editing the same record never lose a write:
//
//	var members []string
//	err := s.Update(ctx, "quotes/123/members", &members, func(exists bool) error {
//	    members = append(members, "小明")
//	    return nil
//	})
//
// Backends:
//
//   - file: one JSON file per key, atomic rename, flock across processes
//   - redis: WATCH/MULTI optimistic transactions
//   - mongo: one document per key, compare-and-swap on a version field
package store

import (
	"context"
	"errors"
	"reflect"
	"strings"

	yerrors "github.com/yiyinbot/yiyin/pkg/errors"
)

// ErrNoChange can be returned by an Update callback to skip the write.
// Update then returns nil.
var ErrNoChange = errors.New("no change")

// Store is a JSON key-value store with per-key read-modify-write.
type Store interface {
	// Get decodes the value at key into v. It returns false if the key
	// does not exist.
	Get(ctx context.Context, key string, v any) (bool, error)
	// Put replaces the value at key.
	Put(ctx context.Context, key string, v any) error
	// Update loads key into v (leaving v zeroed if absent), calls fn, and
	// writes v back if fn returns nil. No other Update of the same key
	// interleaves between the load and the write.
	Update(ctx context.Context, key string, v any, fn func(exists bool) error) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// ValidateKey checks that key is a relative slash path without empty,
// "." or ".." segments.
func ValidateKey(key string) error {
	if key == "" {
		return yerrors.New(yerrors.ErrCodeInvalidInput, "empty store key")
	}
	if strings.ContainsAny(key, "\\\x00") {
		return yerrors.New(yerrors.ErrCodeInvalidInput, "invalid store key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return yerrors.New(yerrors.ErrCodeInvalidInput, "invalid store key %q", key)
		}
	}
	return nil
}

// reset zeroes the value v points to, so a retried Update decodes into a
// clean value.
func reset(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().SetZero()
	}
}

// runUpdate calls fn and maps ErrNoChange to a skipped write.
func runUpdate(fn func(bool) error, exists bool) (write bool, err error) {
	if err := fn(exists); err != nil {
		if errors.Is(err, ErrNoChange) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
