// Package observability lets the bot report what it is doing without the
// bot packages knowing who listens.
//
// Three hook sets exist: [BotHooks] for webhook events, chat commands and
// image jobs, [CacheHooks] for upstream response caching and [HTTPHooks]
// for outgoing requests. Until something is registered every call is a
// no-op. `yiyin serve` registers [LogHooks]:
//
//	observability.NewLogHooks(logger).Register()
//	defer observability.Reset()
package observability

import (
	"context"
	"sync"
	"time"
)

// BotHooks observes the event pipeline.
type BotHooks interface {
	// OnEvent is called for each non-heartbeat event the webhook accepts.
	OnEvent(ctx context.Context, postType, group string)
	// OnCommand is called after a chat command handler returns.
	OnCommand(ctx context.Context, command, group string, d time.Duration, err error)
	// OnRenderStart is called when an image job gets a worker slot.
	OnRenderStart(ctx context.Context, kind string)
	// OnRenderComplete is called when an image job finishes.
	OnRenderComplete(ctx context.Context, kind string, size int, d time.Duration, err error)
}

// CacheHooks observes cached upstream lookups. keyType is the key's
// namespace, such as "translate" or "avatar".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes outgoing HTTP calls.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration)
	// OnError is called when no response arrived at all.
	OnError(ctx context.Context, method, host, path string, err error)
}

// Noop implements every hook set and does nothing.
type Noop struct{}

func (Noop) OnEvent(context.Context, string, string)                                {}
func (Noop) OnCommand(context.Context, string, string, time.Duration, error)        {}
func (Noop) OnRenderStart(context.Context, string)                                  {}
func (Noop) OnRenderComplete(context.Context, string, int, time.Duration, error)    {}
func (Noop) OnCacheHit(context.Context, string)                                     {}
func (Noop) OnCacheMiss(context.Context, string)                                    {}
func (Noop) OnCacheSet(context.Context, string, int)                                {}
func (Noop) OnRequest(context.Context, string, string, string)                      {}
func (Noop) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (Noop) OnError(context.Context, string, string, string, error)                 {}

type registry struct {
	mu    sync.RWMutex
	bot   BotHooks
	cache CacheHooks
	http  HTTPHooks
}

var hooks = registry{bot: Noop{}, cache: Noop{}, http: Noop{}}

// SetBotHooks replaces the bot hooks. nil is ignored.
func SetBotHooks(h BotHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.bot = h
	hooks.mu.Unlock()
}

// SetCacheHooks replaces the cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.cache = h
	hooks.mu.Unlock()
}

// SetHTTPHooks replaces the HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.http = h
	hooks.mu.Unlock()
}

func Bot() BotHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.bot
}

func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset puts the no-op hooks back.
func Reset() {
	hooks.mu.Lock()
	hooks.bot, hooks.cache, hooks.http = Noop{}, Noop{}, Noop{}
	hooks.mu.Unlock()
}

var (
	_ BotHooks   = Noop{}
	_ CacheHooks = Noop{}
	_ HTTPHooks  = Noop{}
)
