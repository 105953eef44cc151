package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"uitestgen/internal/config"
	"uitestgen/internal/embedding"
	"uitestgen/internal/embedding/cache"
	"uitestgen/internal/embedding/gemini"
	"uitestgen/internal/embedding/openai"
	"uitestgen/internal/embedding/tfidf"
	"uitestgen/internal/generator"
	"uitestgen/internal/llm"
	geminichat "uitestgen/internal/llm/gemini"
	openaichat "uitestgen/internal/llm/openai"
	"uitestgen/internal/logging"
	"uitestgen/internal/pattern"
	"uitestgen/internal/search"
	"uitestgen/internal/service"
	"uitestgen/internal/vectorstore"
	"uitestgen/internal/vectorstore/memory"
	"uitestgen/internal/vectorstore/qdrant"
)

// typeBoost weighs component types and test strategies in local embeddings.
const typeBoost = 1.5

// app holds the assembled pipeline of one command invocation.
type app struct {
	cfg     *config.AppConfig
	cfgPath string
	logger  *zap.Logger
	svc     *service.Service
	search  *search.Client
	cached  *cache.Cached
	closers []io.Closer
}

func loadConfig(path string) (*config.AppConfig, string, error) {
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// newApp loads the configuration and wires the pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, path, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, cfgPath: path, logger: logger}
	logger.Debug("config loaded", zap.String("path", path))

	emb, err := a.buildEmbedder(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	st, err := a.buildStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	chat, err := a.buildChat(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.search = a.buildSearch(ctx)

	p := cfg.Pipeline
	gen := generator.New(chat, generator.Config{
		BaseURL:     p.BaseURL,
		Credentials: generator.Credentials{Username: p.Auth.Username, Password: p.Auth.Password},
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	}, logger.Named("generator"))

	a.svc = service.New(service.Deps{
		Embedder:  emb,
		Store:     st,
		Generator: gen,
		Search:    a.search,
		Logger:    logger.Named("pipeline"),
	}, service.Config{
		SimilarityThreshold:   p.SimilarityThreshold,
		DiscoveryThreshold:    p.DiscoveryThreshold,
		QualityThreshold:      cfg.Search.QualityThreshold,
		TopK:                  p.TopK,
		EdgeCasesPerComponent: p.EdgeCasesPerComponent,
		Concurrency:           p.Concurrency,
	})
	return a, nil
}

func (a *app) buildEmbedder(ctx context.Context) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch a.cfg.Embedder.Type {
	case "tfidf", "":
		// local vectors are cheap, nothing to cache
		return tfidf.NewEmbedder(tfidf.WithBoost(typeBoost, pattern.Vocabulary()...)), nil
	case "openai":
		oc := a.cfg.Embedder.OpenAI
		if oc == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
			Logger:     a.logger.Named("embedder"),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "genai":
		gc := a.cfg.Embedder.GenAI
		if gc == nil {
			return nil, errors.New("genai embedder config missing")
		}
		e, err := gemini.NewEmbedder(ctx, gemini.Config{APIKeyEnv: gc.APIKeyEnv, Model: gc.Model})
		if err != nil {
			return nil, fmt.Errorf("genai embedder init failed: %w", err)
		}
		emb = e
	default:
		return nil, fmt.Errorf("unknown embedder: %s", a.cfg.Embedder.Type)
	}

	cc := a.cfg.Embedder.Cache
	if !cc.Enabled {
		return emb, nil
	}
	var store *cache.Store
	if cc.Path != "" {
		s, err := cache.OpenStore(cc.Path)
		if err != nil {
			a.logger.Warn("embedding cache unavailable, keeping vectors in memory only",
				zap.String("path", cc.Path), zap.Error(err))
		} else {
			store = s
			a.closers = append(a.closers, s)
		}
	}
	cached, err := cache.New(emb, cc.LRUSize, store, a.logger.Named("embedding_cache"))
	if err != nil {
		return nil, err
	}
	a.cached = cached
	return cached, nil
}

func (a *app) buildStore() (vectorstore.Storage, error) {
	switch a.cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		qc := a.cfg.VectorStore.Qdrant
		if qc == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
			Logger:     a.logger.Named("qdrant"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", a.cfg.VectorStore.Type)
	}
}

// buildChat returns nil, selecting the templates, when the configured model has no API key.
func (a *app) buildChat(ctx context.Context) (llm.ChatModel, error) {
	gc := a.cfg.Generator
	switch gc.Type {
	case "template", "":
		return nil, nil
	case "openai":
		if gc.OpenAI == nil {
			return nil, errors.New("openai generator config missing")
		}
		chat, err := openaichat.NewChat(openaichat.Config{
			BaseURL:    gc.OpenAI.BaseURL,
			APIKeyEnv:  gc.OpenAI.APIKeyEnv,
			Model:      gc.OpenAI.Model,
			Timeout:    time.Duration(gc.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: gc.OpenAI.MaxRetries,
			Logger:     a.logger.Named("chat"),
		})
		if err != nil {
			a.logger.Warn("chat model unavailable, using templates", zap.Error(err))
			return nil, nil
		}
		return chat, nil
	case "genai":
		if gc.GenAI == nil {
			return nil, errors.New("genai generator config missing")
		}
		chat, err := geminichat.NewChat(ctx, geminichat.Config{APIKeyEnv: gc.GenAI.APIKeyEnv, Model: gc.GenAI.Model})
		if err != nil {
			a.logger.Warn("chat model unavailable, using templates", zap.Error(err))
			return nil, nil
		}
		return chat, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", gc.Type)
	}
}

// buildSearch returns nil when external search is disabled.
func (a *app) buildSearch(ctx context.Context) *search.Client {
	sc := a.cfg.Search
	if !sc.Enabled {
		return nil
	}
	key := os.Getenv(sc.APIKeyEnv)
	if key == "" {
		a.logger.Warn("external search enabled but no API key set", zap.String("env", sc.APIKeyEnv))
	}
	var opts *search.RedisOptions
	if sc.Redis != nil {
		opts = &search.RedisOptions{Addr: sc.Redis.Addr, Password: sc.Redis.Password, DB: sc.Redis.DB}
	}
	c := search.OpenCache(ctx, opts, a.logger.Named("search_cache"))
	if closer, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}
	return search.New(search.Config{
		BaseURL:        sc.BaseURL,
		APIKey:         key,
		Timeout:        time.Duration(sc.TimeoutSecs) * time.Second,
		CacheTTL:       time.Duration(sc.CacheTTLSecs) * time.Second,
		RatePerSec:     sc.RatePerSec,
		DomainKeywords: sc.DomainKeywords,
		Cache:          c,
		Logger:         a.logger.Named("search"),
	})
}

// Close releases caches and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
