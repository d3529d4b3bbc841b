package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"courier/internal/cache"
	"courier/internal/domain"
	"courier/internal/engine"
	"courier/internal/fanout"
	"courier/internal/keystore"
	"courier/internal/membership"
	"courier/internal/presence"
	"courier/internal/protocol"
	"courier/internal/server"
)

// Node bundles the daemon's long-lived resources so main can close them
// in order.
type Node struct {
	Server *server.Server

	redis *redis.Client
	pool  *pgxpool.Pool
}

// BuildNode constructs the delivery node from config: Redis registry,
// membership store, resolver, and HTTP surface. Redis connectivity is
// verified up front; a missing POSTGRES_URL falls back to an empty
// in-memory membership store for single-node runs.
func BuildNode(ctx context.Context, cfg Config) (*Node, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisURL, err)
	}
	registry := presence.NewRedis(rdb, cfg.PresenceTTL)

	var (
		members domain.MembershipStore
		pool    *pgxpool.Pool
	)
	if cfg.PostgresURL != "" {
		p, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			rdb.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		pool = p
		members = membership.NewPostgres(p)
	} else {
		log.Println("POSTGRES_URL not set; using empty in-memory membership")
		members = membership.NewMemory()
	}

	resolver := fanout.NewResolver(members, registry)
	srv := server.New(
		domain.ServerID(cfg.ServerID),
		cfg.Addr(),
		registry,
		resolver,
		[]byte(cfg.JWTSecret),
	)
	return &Node{Server: srv, redis: rdb, pool: pool}, nil
}

// Close releases the node's backing connections.
func (n *Node) Close() {
	if n.pool != nil {
		n.pool.Close()
	}
	if n.redis != nil {
		if err := n.redis.Close(); err != nil {
			log.Printf("close redis: %v", err)
		}
	}
}

// BuildEngine constructs the CLI's engine over a bolt keystore in the
// given home directory, creating the directory on first use.
func BuildEngine(home string) (*engine.Engine, func() error, error) {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create home %s: %w", home, err)
	}
	store, err := keystore.OpenBolt(filepath.Join(home, "keys.db"))
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(store, protocol.NewSuite(), cache.NewLRU(cache.MaxSessions))
	return eng, store.Close, nil
}
