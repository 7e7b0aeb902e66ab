// Package server implements the flatnode HTTP API.
//
// The API accepts bundle documents, inlines them through the shared
// pipeline, stores the resulting graphs, and serves stored graphs and
// their rendered artifacts:
//
//	POST   /v1/graphs            inline a bundle and store the graph
//	GET    /v1/graphs            list stored graphs
//	GET    /v1/graphs/{id}       one stored graph with its snapshot
//	GET    /v1/graphs/{id}/dot   DOT artifact
//	GET    /v1/graphs/{id}/svg   SVG artifact
//	GET    /v1/graphs/{id}/json  snapshot JSON
//	DELETE /v1/graphs/{id}       delete a stored graph
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/flatnode/flatnode/pkg/cache"
	"github.com/flatnode/flatnode/pkg/pipeline"
	"github.com/flatnode/flatnode/pkg/store"
)

// Config holds server configuration, populated from the environment.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// RedisAddr enables the redis artifact cache when set.
	RedisAddr string

	// MongoURI enables the mongo graph store when set; without it
	// graphs live in process memory.
	MongoURI string

	// MongoDB is the mongo database name.
	MongoDB string
}

// Environment variable names.
const (
	EnvAddr      = "FLATNODE_ADDR"
	EnvRedisAddr = "FLATNODE_REDIS_ADDR"
	EnvMongoURI  = "FLATNODE_MONGO_URI"
	EnvMongoDB   = "FLATNODE_MONGO_DB"
)

// DefaultAddr is the listen address used when FLATNODE_ADDR is unset.
const DefaultAddr = ":8080"

// ConfigFromEnv loads configuration from the environment. A .env file
// in the working directory is read first when present.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:      os.Getenv(EnvAddr),
		RedisAddr: os.Getenv(EnvRedisAddr),
		MongoURI:  os.Getenv(EnvMongoURI),
		MongoDB:   os.Getenv(EnvMongoDB),
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return cfg
}

// Server couples the HTTP listener with the pipeline and the graph store.
type Server struct {
	httpServer *http.Server
	runner     *pipeline.Runner
	store      store.Store
	logger     *log.Logger
}

// New assembles a server from its dependencies. Nil dependencies get
// safe defaults: a cacheless runner, an in-memory store, the default
// logger.
func New(addr string, runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// NewFromConfig builds the cache and store backends named by the
// configuration and assembles the server around them.
func NewFromConfig(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		c = redisCache
		logger.Info("using redis cache", "addr", cfg.RedisAddr)
	}

	var st store.Store
	if cfg.MongoURI != "" {
		mongoStore, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		st = mongoStore
		logger.Info("using mongo store", "database", cfg.MongoDB)
	} else {
		st = store.NewMemoryStore()
		logger.Warn("no FLATNODE_MONGO_URI set, graphs are stored in memory")
	}

	runner := pipeline.NewRunner(c, nil, logger)
	return New(cfg.Addr, runner, st, logger), nil
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases backend resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.store.Close(ctx); err == nil {
		err = closeErr
	}
	if closeErr := s.runner.Close(); err == nil {
		err = closeErr
	}
	return err
}
