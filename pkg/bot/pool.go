package bot

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/observability"
)

// Pool bounds concurrent image jobs.
type Pool struct {
	sem *semaphore.Weighted
	n   int
}

// NewPool returns a pool running at most n jobs at once. n <= 0 means
// GOMAXPROCS.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), n: n}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.n }

// Render runs fn once a slot is free and reports it to the render hooks.
func (p *Pool) Render(ctx context.Context, kind string, fn func() ([]byte, error)) ([]byte, error) {
	hooks := observability.Bot()
	hooks.OnRenderStart(ctx, kind)
	start := time.Now()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		hooks.OnRenderComplete(ctx, kind, 0, time.Since(start), err)
		return nil, err
	}
	out, err := p.run(kind, fn)

	hooks.OnRenderComplete(ctx, kind, len(out), time.Since(start), err)
	return out, err
}

// run calls fn holding a slot. A panic in fn is returned as an internal
// error and the slot is released either way.
func (p *Pool) run(kind string, fn func() ([]byte, error)) (out []byte, err error) {
	defer p.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.New(errors.ErrCodeInternal, "%s render panicked: %v", kind, r)
		}
	}()
	return fn()
}

// fetchAll downloads urls with bounded parallelism. Failed downloads leave
// a nil entry; the result keeps the order of urls.
func fetchAll(ctx context.Context, urls []string, limit int, fetch func(context.Context, string) ([]byte, error)) [][]byte {
	out := make([][]byte, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range urls {
		g.Go(func() error {
			data, err := fetch(ctx, u)
			if err == nil {
				out[i] = data
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
