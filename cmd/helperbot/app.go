package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"helperbot/internal/assistant"
	"helperbot/internal/completion"
	"helperbot/internal/completion/openai"
	"helperbot/internal/config"
	"helperbot/internal/docstore"
	"helperbot/internal/docstore/chromem"
	"helperbot/internal/docstore/memory"
	"helperbot/internal/docstore/qdrant"
	"helperbot/internal/domain"
	"helperbot/internal/embedding/gemini"
	embedopenai "helperbot/internal/embedding/openai"
	"helperbot/internal/embedding/tfidf"
	"helperbot/internal/history"
	"helperbot/internal/history/jsonl"
	"helperbot/internal/history/redis"
	"helperbot/internal/history/sqlite"
	"helperbot/internal/manual"
	"helperbot/internal/prompt"
	"helperbot/internal/retrieval"
	"helperbot/internal/service"
	"helperbot/internal/summarizer"
)

// app holds the assembled components of one session.
type app struct {
	cfg          *config.AppConfig
	logger       *zap.Logger
	store        *docstore.Store
	ingestor     *service.Ingestor
	logs         domain.LogStore
	orchestrator *assistant.Orchestrator
	watcher      *manual.Watcher
}

func loadConfig(path string) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newIndexer assembles the document store and the ingestor feeding it.
func newIndexer(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*docstore.Store, *service.Ingestor, error) {
	emb, err := buildEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}
	idx, err := buildIndex(cfg.DocStore)
	if err != nil {
		return nil, nil, err
	}
	store := docstore.New(emb, idx, logger.Named("docstore"))

	var sum service.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
	return store, service.NewIngestor(store, sum, cfg.Summarizer.MaxSentences, logger.Named("ingest")), nil
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, conversationID string) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, ingestor, err := newIndexer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.ingestor = store, ingestor

	a.logs, err = buildLogStore(cfg.History, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	client, err := openai.NewClient(openai.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKeyEnv:   cfg.Completion.APIKeyEnv,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("completion client init failed: %w", err)
	}
	completer := completion.NewGuard(client, cfg.Completion.Timeout(), logger.Named("completion"))

	prompts, err := prompt.Load(cfg.Prompts.Dir)
	if err != nil {
		a.Close()
		return nil, err
	}

	if conversationID == "" {
		conversationID = history.NewConversationID(time.Now())
	}
	hist := history.New(a.logs, conversationID, cfg.History.MaxHistory, logger.Named("history"))
	if err := hist.Load(ctx); err != nil {
		logger.Warn("continuing without earlier turns", zap.Error(err))
	}

	gate := retrieval.NewGate(store, completer, prompts, retrieval.Config{
		NResults:      cfg.DocStore.NResults,
		FunctionName:  cfg.Assistant.RetrievalFunction,
		CacheVerdicts: cfg.Assistant.CacheGateCalls,
	}, logger.Named("retrieval"))

	a.orchestrator = assistant.New(completer, gate, hist, prompts, assistant.Config{
		GreetingLabel: cfg.Assistant.GreetingLabel,
		Strategy:      assistant.Strategy(cfg.Assistant.Strategy),
	}, logger.Named("assistant"))
	return a, nil
}

// ingest indexes the configured manual. An unreachable store is logged and
// tolerated: turns are then answered without reference material.
func (a *app) ingest(ctx context.Context) (service.Summary, error) {
	paths := a.cfg.ManualPaths()
	if len(paths) == 0 {
		a.logger.Warn("no manual configured; set manual.files or manual.dataset")
		return service.Summary{}, nil
	}
	sum, err := a.ingestor.Ingest(ctx, paths)
	if errors.Is(err, domain.ErrStoreUnavailable) {
		a.logger.Warn("document store unavailable", zap.Error(err))
		return service.Summary{}, nil
	}
	return sum, err
}

// watch re-indexes the manual on change until ctx is done. It is a no-op
// unless manual.watch is set.
func (a *app) watch(ctx context.Context) error {
	paths := a.cfg.ManualPaths()
	if !a.cfg.Manual.Watch || len(paths) == 0 {
		return nil
	}
	w, err := manual.NewWatcher(paths, a.logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("watch manual: %w", err)
	}
	a.watcher = w
	go func() {
		if err := w.Run(ctx, a.ingestor.Reload); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("manual watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *app) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	_ = a.logger.Sync()
}

func buildEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini embedder config missing")
		}
		emb, err := gemini.New(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
			TaskType:  cfg.Gemini.TaskType,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder init failed: %w", err)
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func buildIndex(cfg config.DocStoreConfig) (docstore.VectorIndex, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(), nil
	case "chromem":
		var cc chromem.Config
		if cfg.Chromem != nil {
			cc = chromem.Config{Dir: cfg.Chromem.Dir, Collection: cfg.Chromem.Collection}
		}
		idx, err := chromem.New(cc)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		idx, err := qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown doc store: %s", cfg.Type)
	}
}

func buildLogStore(cfg config.HistoryConfig, logger *zap.Logger) (domain.LogStore, error) {
	switch cfg.Type {
	case "jsonl", "":
		s, err := jsonl.New(cfg.Dir, logger.Named("jsonl"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o750); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("redis history config missing")
		}
		return redis.New(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: os.Getenv(cfg.Redis.PasswordEnv),
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.TTLHours) * time.Hour,
		}), nil
	default:
		return nil, fmt.Errorf("unknown history store: %s", cfg.Type)
	}
}
