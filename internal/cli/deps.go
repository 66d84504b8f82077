package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"jobmate/match-service/internal/cache"
	"jobmate/match-service/internal/config"
	"jobmate/match-service/internal/db"
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/notify"
	"jobmate/match-service/internal/scanner"
	"jobmate/match-service/internal/store"
)

// deps holds the connections and services shared by the commands.
type deps struct {
	cfg *config.Config
	log *zap.Logger

	pool *pgxpool.Pool
	rdb  *redis.Client    // nil without REDIS_URL
	mq   *amqp.Connection // nil without AMQP_URL
	ev   *notify.Events   // nil without REDIS_URL

	store     *store.Postgres
	scanner   *scanner.Scanner
	lifecycle *lifecycle.Service
	scores    *cache.Scores
}

// publisher is satisfied by notify.Events and by both service Publisher
// interfaces.
type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

func openDeps(ctx context.Context, cfg *config.Config, log *zap.Logger) (d *deps, err error) {
	d = &deps{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if d.pool, err = db.NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	log.Info("postgres connected")

	if cfg.RedisURL != "" {
		if d.rdb, err = db.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
		d.ev = notify.NewEvents(d.rdb)
		log.Info("redis connected")
	}
	if cfg.AMQPURL != "" {
		if d.mq, err = db.NewAMQPConnection(cfg.AMQPURL); err != nil {
			return nil, err
		}
		log.Info("amqp connected")
	}

	d.store = store.NewPostgres(d.pool)

	mirrors, err := d.mirrors()
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(notify.NewPostgres(d.pool), log, mirrors...)

	var pub publisher
	if d.ev != nil {
		pub = d.ev
	}
	d.scanner = scanner.New(d.store, dispatcher, pub, scanner.Options{
		DefaultThreshold: cfg.DefaultThreshold,
		TTL:              cfg.MatchTTL,
	}, log)
	d.lifecycle = lifecycle.NewService(d.store, pub, log)

	var c cache.Cache = cache.NewMemoryCache()
	if d.rdb != nil {
		c = cache.NewRedisCache(d.rdb)
	}
	d.scores = cache.NewScores(d.store, c, cfg.ScoreCacheTTL, log)
	return d, nil
}

// mirrors builds the notification transports named in MATCH_NOTIFY_MIRRORS.
func (d *deps) mirrors() ([]notify.Notifier, error) {
	var out []notify.Notifier
	for _, name := range d.cfg.NotifyMirrors {
		switch name {
		case "redis":
			out = append(out, d.ev)
		case "amqp":
			m := notify.NewAMQP(d.mq, notify.NotificationsExchange)
			if err := m.Declare(); err != nil {
				return nil, fmt.Errorf("declare notifications exchange: %w", err)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// Close releases every open connection.
func (d *deps) Close() {
	if d.mq != nil {
		if err := d.mq.Close(); err != nil {
			d.log.Warn("amqp close", zap.Error(err))
		}
	}
	if d.rdb != nil {
		if err := d.rdb.Close(); err != nil {
			d.log.Warn("redis close", zap.Error(err))
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
