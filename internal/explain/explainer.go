// Package explain builds the explanation prompt for a churn prediction and
// asks a text-generation service to answer it.
package explain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/churn-explainer/internal/cache"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/stats"
)

const cacheKeyPrefix = "churn:explanation:"

// Options tune prompt construction and caching.
type Options struct {
	Importances []Importance
	TopFeatures int
	Threshold   float64
	// Model namespaces cache keys so a model switch never serves stale text.
	Model    string
	Cache    cache.Provider
	CacheTTL time.Duration
}

// Explainer composes prompts and fetches explanations.
type Explainer struct {
	gen         Generator
	importances []Importance
	topFeatures int
	threshold   float64
	model       string
	cache       cache.Provider
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewExplainer wires a generator with prompt and cache options.
func NewExplainer(gen Generator, opts Options, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Importances == nil {
		opts.Importances = DefaultImportances()
	}
	if opts.TopFeatures == 0 {
		opts.TopFeatures = 10
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultRiskThreshold
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	return &Explainer{
		gen:         gen,
		importances: opts.Importances,
		topFeatures: opts.TopFeatures,
		threshold:   opts.Threshold,
		model:       opts.Model,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		logger:      logger,
	}
}

// Prompt builds the prompt for one customer. Cohort statistics are
// recomputed from ds on every call.
func (e *Explainer) Prompt(risk float64, features []models.Feature, surname string, ds *dataset.Dataset) string {
	in := PromptInput{
		Surname:     surname,
		Risk:        risk,
		Features:    features,
		Importances: e.importances,
		TopFeatures: e.topFeatures,
		Threshold:   e.threshold,
	}
	if ds != nil {
		in.Churned = stats.DescribeRecords(ds.Cohort(true))
		in.Retained = stats.DescribeRecords(ds.Cohort(false))
	}
	return BuildPrompt(in)
}

// Explain returns the generated explanation for one customer.
func (e *Explainer) Explain(ctx context.Context, risk float64, features []models.Feature, surname string, ds *dataset.Dataset) (string, error) {
	prompt := e.Prompt(risk, features, surname, ds)
	e.logger.Debug("explanation prompt", "surname", surname, "prompt", prompt)

	key := e.cacheKey(prompt)
	if cached, err := e.cache.Get(ctx, key); err == nil {
		e.logger.Debug("explanation cache hit", "surname", surname)
		return string(cached), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		e.logger.Warn("explanation cache read failed", "error", err)
	}

	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := e.cache.Set(ctx, key, []byte(text), e.cacheTTL); err != nil {
		e.logger.Warn("explanation cache write failed", "error", err)
	}
	return text, nil
}

func (e *Explainer) cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + prompt))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
