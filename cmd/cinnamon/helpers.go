package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/jmturner/cinnamon/internal/config"
	"github.com/jmturner/cinnamon/internal/engine"
	"github.com/jmturner/cinnamon/internal/firefly"
	"github.com/jmturner/cinnamon/internal/llm"
	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/service"
	"github.com/jmturner/cinnamon/internal/storage"
	"github.com/jmturner/cinnamon/internal/store"
)

// listOptions parses the shared date-range and paging flags.
func listOptions(startDate, endDate string, page, limit int) (service.TransactionListOptions, error) {
	opts := service.TransactionListOptions{Page: page, Limit: limit}

	if startDate != "" {
		start, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return opts, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		opts.StartDate = &start
	}
	if endDate != "" {
		end, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return opts, fmt.Errorf("invalid end date %q: %w", endDate, err)
		}
		opts.EndDate = &end
	}
	if opts.StartDate != nil && opts.EndDate != nil && opts.EndDate.Before(*opts.StartDate) {
		return opts, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}

	return opts, nil
}

// initAudit opens the audit ledger with auto-migration.
func initAudit(ctx context.Context) (service.AuditStore, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	audit, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := audit.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return audit, nil
}

// initFirefly builds the transaction source from config.
func initFirefly() (*firefly.Client, error) {
	return firefly.NewClient(
		viper.GetString("firefly.url"),
		viper.GetString("firefly.token"),
		firefly.WithCategoriesTTL(viper.GetDuration("firefly.categories_ttl")),
	)
}

// initFallback constructs the LLM fallback when an API key is
// configured, nil otherwise.
func initFallback() (*llm.Classifier, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Confidence:  viper.GetFloat64("llm.confidence"),
	}
	if !cfg.Enabled() {
		slog.Debug("LLM fallback disabled, no API key configured")
		return nil, nil
	}
	return llm.NewClassifier(cfg)
}

// initLearningStore opens the learned-artifact store under the data
// directory.
func initLearningStore() (*store.LearningStore, error) {
	return store.NewLearningStore(config.ExpandPath(viper.GetString("data.dir")))
}

func engineConfig() engine.Config {
	return engine.Config{
		FuzzyThreshold: viper.GetFloat64("engine.fuzzy_threshold"),
		StatThreshold:  viper.GetFloat64("engine.stat_threshold"),
		MinExamples:    viper.GetInt("engine.min_examples"),
		AutoApprove: engine.AutoApprovalPolicy{
			Threshold:   viper.GetFloat64("approval.threshold"),
			ApproveTags: model.NormalizeTags(viper.GetStringSlice("approval.auto_tags")),
			ManualTags:  model.NormalizeTags(viper.GetStringSlice("approval.manual_tags")),
		},
	}
}

// initEngine wires the full pipeline: learned store, LLM fallback,
// Firefly applier, and the audit ledger. The caller must run the
// returned cleanup when done.
func initEngine(ctx context.Context, source *firefly.Client, cfg engine.Config) (*engine.Engine, service.AuditStore, func(), error) {
	learningStore, err := initLearningStore()
	if err != nil {
		return nil, nil, nil, err
	}

	fallback, err := initFallback()
	if err != nil {
		return nil, nil, nil, err
	}

	audit, err := initAudit(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	deps := engine.Dependencies{Audit: audit}
	if fallback != nil {
		deps.Fallback = fallback
	}
	if source != nil {
		deps.Applier = source
	}

	cleanup := func() {
		if fallback != nil {
			fallback.Close()
		}
		if err := audit.Close(); err != nil {
			slog.Warn("failed to close audit store", "error", err)
		}
	}

	return engine.New(cfg, learningStore, deps), audit, cleanup, nil
}
