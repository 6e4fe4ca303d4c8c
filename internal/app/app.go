// Package app builds the indexer's collaborators from configuration. The
// service and the reindex command share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yourorg/vehicle-search/internal/catalog"
	"github.com/yourorg/vehicle-search/internal/config"
	"github.com/yourorg/vehicle-search/internal/elastic"
	"github.com/yourorg/vehicle-search/internal/indexer"
	"github.com/yourorg/vehicle-search/internal/meili"
	"github.com/yourorg/vehicle-search/internal/natsx"
	"github.com/yourorg/vehicle-search/internal/notify"
	"github.com/yourorg/vehicle-search/internal/redisx"
	"github.com/yourorg/vehicle-search/internal/search"
	"github.com/yourorg/vehicle-search/internal/store"
)

const pingTimeout = 5 * time.Second

// Source is a catalog reader that can both fetch one vehicle and page
// through all of them.
type Source interface {
	indexer.Fetcher
	indexer.Lister
}

type Components struct {
	Config     *config.Config
	Logger     *slog.Logger
	Subscriber notify.Subscriber // nil unless built WithTransport
	// Publisher is set only for the in-process memory transport, which has
	// no external publisher.
	Publisher notify.Publisher
	Source     Source
	Index      search.Index
	Syncer     *indexer.Syncer

	closers []io.Closer
}

type Option func(*options)

type options struct {
	transport bool
}

// WithTransport also connects to the notification transport.
func WithTransport() Option { return func(o *options) { o.transport = true } }

// Build connects everything cfg names. On error, whatever was already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Components, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{Config: cfg, Logger: logger}

	if o.transport {
		sub, closer, err := NewTransport(ctx, cfg.Transport)
		if err != nil {
			return nil, err
		}
		c.Subscriber = sub
		if b, ok := sub.(*notify.Broker); ok {
			c.Publisher = b
		}
		c.closers = append(c.closers, closer)
	}

	src, closer, err := NewSource(ctx, cfg.Source)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Source = src
	c.closers = append(c.closers, closer)

	idx, err := NewIndex(cfg.Index)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Index = idx
	c.Syncer = &indexer.Syncer{Fetcher: src, Index: idx}

	logger.Info("components ready",
		"transport", transportKind(o.transport, cfg),
		"source", cfg.Source.Kind,
		"index", cfg.Index.Kind,
		"index_name", cfg.Index.Name,
	)
	return c, nil
}

func transportKind(enabled bool, cfg *config.Config) string {
	if !enabled {
		return "none"
	}
	return cfg.Transport.Kind
}

// Sweeper returns a reindex sweeper over the configured source.
func (c *Components) Sweeper() *indexer.Sweeper {
	r := c.Config.Reindex
	return &indexer.Sweeper{
		Lister: c.Source,
		Syncer: c.Syncer,
		Logger: c.Logger,
		Config: indexer.SweepConfig{
			Interval:       r.Interval,
			PageSize:       r.PageSize,
			Rate:           r.Rate,
			RequestTimeout: r.RequestTimeout,
		},
	}
}

// Searcher returns the index as a search.Searcher when the backend can be
// queried.
func (c *Components) Searcher() search.Searcher {
	s, _ := c.Index.(search.Searcher)
	return s
}

// ConfigureIndex applies the default schema when enabled and supported.
// A failure is logged and not returned: indexing can proceed against an
// index that was configured earlier.
func (c *Components) ConfigureIndex(ctx context.Context) {
	if !c.Config.Index.Configure {
		return
	}
	cfgr, ok := c.Index.(search.Configurer)
	if !ok {
		return
	}
	if err := cfgr.Configure(ctx, search.DefaultSchema()); err != nil {
		c.Logger.Error("index configuration failed", "index", c.Config.Index.Name, "error", err)
		return
	}
	c.Logger.Info("index configured", "index", c.Config.Index.Name)
}

// Close releases connections in reverse order of opening.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func NewTransport(ctx context.Context, cfg config.TransportConfig) (notify.Subscriber, io.Closer, error) {
	switch cfg.Kind {
	case "redis":
		rc := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rc.Ping(pctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		return rc, rc, nil
	case "nats":
		nc, err := natsx.Connect(cfg.NATS.URL, cfg.NATS.Name)
		if err != nil {
			return nil, nil, err
		}
		return nc, nc, nil
	case "memory":
		b := notify.NewBroker(256)
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}

func NewSource(ctx context.Context, cfg config.SourceConfig) (Source, io.Closer, error) {
	switch cfg.Kind {
	case "http":
		return catalog.NewClient(catalog.Config{
			BaseURL:  cfg.HTTP.BaseURL,
			Timeout:  cfg.HTTP.Timeout,
			RetryMax: cfg.HTTP.RetryMax,
		}), nopCloser{}, nil
	case "sql":
		st, err := store.Open(cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := st.Ping(pctx); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("catalog db: %w", err)
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", cfg.Kind)
	}
}

func NewIndex(cfg config.IndexConfig) (search.Index, error) {
	switch cfg.Kind {
	case "meilisearch":
		return meili.NewClient(meili.Config{
			URL:      cfg.Meilisearch.URL,
			APIKey:   cfg.Meilisearch.APIKey,
			Index:    cfg.Name,
			Timeout:  cfg.Meilisearch.Timeout,
			RetryMax: cfg.Meilisearch.RetryMax,
		}), nil
	case "elasticsearch":
		return elastic.New(elastic.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
			Index:     cfg.Name,
		})
	case "memory":
		return search.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index %q", cfg.Kind)
	}
}
