package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/massagebook/libs/config"
	"github.com/md-rashed-zaman/massagebook/libs/db"
	"github.com/md-rashed-zaman/massagebook/libs/kafkax"
	"github.com/md-rashed-zaman/massagebook/libs/runtime"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

// backends holds the process-wide stores selected by STORE_DRIVER and DIRECTORY_DRIVER.
type backends struct {
	storeDriver string
	store       storage.Repository
	directory   directory.Directory
	emitter     events.Emitter
	redis       *redis.Client
	readyChecks []runtime.ReadyCheck
	closers     []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, logger *slog.Logger) (*backends, error) {
	b := &backends{storeDriver: strings.ToLower(config.String("STORE_DRIVER", "memory"))}

	var pool *db.Pool
	openPool := func() (*db.Pool, error) {
		if pool != nil {
			return pool, nil
		}
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, err
		}
		p, err := db.Open(ctx, dbURL, db.Options{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
			MinConns: int32(config.Int("DB_MIN_CONNS", 0)),
		})
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		pool = p
		b.closers = append(b.closers, p.Close)
		b.readyChecks = append(b.readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(p)})
		return p, nil
	}

	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		rdb := b.redis
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.readyChecks = append(b.readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	switch b.storeDriver {
	case "memory":
		b.store = storage.NewBlobStore(storage.NewMemoryKV(), storage.DefaultKey)
	case "redis":
		if b.redis == nil {
			return nil, fmt.Errorf("STORE_DRIVER=redis requires REDIS_ADDR")
		}
		kv := storage.NewRedisKV(b.redis, config.Int("REDIS_MAX_RETRIES", 16))
		b.store = storage.NewBlobStore(kv, config.String("STORE_KEY", storage.DefaultKey))
	case "postgres":
		p, err := openPool()
		if err != nil {
			return nil, err
		}
		b.store = storage.NewPostgresStore(p)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", b.storeDriver)
	}

	switch driver := strings.ToLower(config.String("DIRECTORY_DRIVER", "memory")); driver {
	case "memory":
		mem := directory.NewMemory()
		if config.Bool("SEED_DIRECTORY", false) {
			if err := mem.Seed(time.Now().UTC()); err != nil {
				return nil, fmt.Errorf("seed directory: %w", err)
			}
			logger.Info("directory seeded with demo providers")
		}
		b.directory = mem
	case "postgres":
		p, err := openPool()
		if err != nil {
			return nil, err
		}
		b.directory = directory.NewPostgres(p)
	default:
		return nil, fmt.Errorf("unknown DIRECTORY_DRIVER %q", driver)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	if list := kafkax.SplitBrokers(brokers); len(list) > 0 {
		emitter := events.NewKafkaEmitter(list)
		b.emitter = emitter
		b.closers = append(b.closers, func() { _ = emitter.Close() })
		b.readyChecks = append(b.readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		b.emitter = events.LogEmitter{Logger: logger}
	}
	return b, nil
}
