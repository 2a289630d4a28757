package main

import (
	"context"
	"database/sql"
	"fmt"

	"birdconnect/internal/config"
	cacheAdapter "birdconnect/internal/infrastructure/cache/adapter"
	cacheport "birdconnect/internal/infrastructure/cache/port"
	"birdconnect/internal/infrastructure/database"
	queueAdapter "birdconnect/internal/infrastructure/queue/adapter"
	qport "birdconnect/internal/infrastructure/queue/port"
	"birdconnect/internal/observability"
	chatAdapter "birdconnect/internal/pkg/chat/persistence/repository/adapter"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
	userAdapter "birdconnect/internal/repository/adapter"
	userport "birdconnect/internal/repository/port"
)

// stores bundles the repositories for the configured backend.
type stores struct {
	Chats repository.ChatRepository
	Users userport.UserRepository

	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}
	var chats repository.ChatRepository

	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.DBURL, database.WithMaxConns(cfg.DBMaxConns))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := database.MigratePostgres(ctx, pool); err != nil {
			s.Close()
			return nil, err
		}
		chats = chatAdapter.NewPgChatRepository(pool)
		s.Users = userAdapter.NewPgUserRepository(pool)

	case config.StoreSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { closeDB(db) })
		chats = chatAdapter.NewSqliteChatRepository(db)
		s.Users = userAdapter.NewSqliteUserRepository(db)

	case config.StoreMemory:
		observability.Logger().Warn("memory store selected: state is lost on restart and the profile directory starts empty")
		chats = chatAdapter.NewMemoryChatRepository()
		s.Users = userAdapter.NewMemoryUserRepository()

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	cache, err := openCache(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = cache.Close() })
	s.Chats = chatAdapter.NewCachedChatRepository(chats, cache, cfg.SummaryCacheTTL)
	return s, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		observability.Logger().Error("close sqlite", "error", err)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cacheport.Cache, error) {
	if cfg.RedisURL == "" {
		return cacheAdapter.NewMemoryCache(), nil
	}
	c, err := cacheAdapter.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// taskQueue pairs the producer and consumer sides of the configured queue.
type taskQueue struct {
	Client qport.Client
	Server qport.Server
}

func (q taskQueue) Close() {
	if err := q.Client.Close(); err != nil {
		observability.Logger().Error("close queue client", "error", err)
	}
}

func openQueue(cfg *config.Config) (taskQueue, error) {
	if cfg.RedisURL == "" {
		inline := queueAdapter.NewInlineQueue()
		return taskQueue{Client: inline, Server: inline}, nil
	}
	client, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
	if err != nil {
		return taskQueue{}, err
	}
	server, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.AsynqConcurrency, cfg.AsynqQueues)
	if err != nil {
		_ = client.Close()
		return taskQueue{}, err
	}
	return taskQueue{Client: client, Server: server}, nil
}
