package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	Dir string // file

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the store named by opts.Backend (default "file").
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "cannot reach redis at %s", opts.RedisAddr)
		}
		return NewRedisStore(rdb, opts.RedisPrefix), nil
	case BackendMongo:
		coll := opts.MongoCollection
		if coll == "" {
			coll = "records"
		}
		s, err := DialMongo(ctx, opts.MongoURI, opts.MongoDatabase, coll)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "cannot reach mongo")
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", opts.Backend)
	}
}
