package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medibook/hms/internal/config"
	"github.com/medibook/hms/internal/notify"
	"github.com/medibook/hms/internal/router"
	"github.com/medibook/hms/internal/session"
	"github.com/medibook/hms/pkg/client"
)

// app holds the wired client: one API client, one session store and the
// router and toast center that react to it.
type app struct {
	log    zerolog.Logger
	api    *client.Client
	store  *session.Store
	router *router.Router
	notify *notify.Center
	closer func()
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	storage, closer, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(log))
	store := session.New(api, storage, log)
	r := router.New(router.MustTable(router.DefaultRoutes), store, log)
	n := notify.New(cfg.ToastDuration, log)

	api.Use(
		client.AwaitReady(store),
		client.RetryUnauthorized(store, sessionExpired(r, n)),
		client.BearerAuth(store),
	)

	if err := store.Restore(ctx); err != nil {
		// Start signed out rather than refuse to start.
		log.Warn().Err(err).Msg("restore session")
	}
	return &app{log: log, api: api, store: store, router: r, notify: n, closer: closer}, nil
}

func (a *app) Close() {
	if a.closer != nil {
		a.closer()
	}
}

// sessionExpired runs after a failed refresh has already cleared the
// session: tell the user and send them to the login page.
func sessionExpired(r *router.Router, n *notify.Center) func(context.Context) {
	return func(ctx context.Context) {
		n.Warning("Your session has expired. Please log in again.")
		r.Expire(ctx)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return session.NewMemoryStorage(), nil, nil
	case config.StorageRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return session.NewRedisStorage(rdb, cfg.RedisPrefix), func() { rdb.Close() }, nil //nolint:errcheck
	default:
		return session.NewFileStorage(cfg.SessionDir()), nil, nil
	}
}
