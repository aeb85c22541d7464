package generator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/encorelive/backend/internal/models"
)

// ListingInvalidator drops cached event listings after a sweep creates events.
type ListingInvalidator interface {
	Invalidate(ctx context.Context)
}

// RunReport aggregates one sweep over all active templates.
type RunReport struct {
	Templates       int `json:"templates"`
	Created         int `json:"created"`
	SkippedExisting int `json:"skipped_existing"`
	Failed          int `json:"failed"`
}

// Runner drives the engine across every active template. Templates are
// independent, so they run on a bounded worker pool with no ordering
// guarantee; one template's failure never aborts the others.
type Runner struct {
	templates TemplateStore
	engine    *Engine
	cache     ListingInvalidator // optional
	workers   int
	logger    *zap.Logger
}

// NewRunner creates a runner. cache may be nil.
func NewRunner(templates TemplateStore, engine *Engine, cache ListingInvalidator, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{templates: templates, engine: engine, cache: cache, workers: workers, logger: logger}
}

// RunAll generates events for every active template and aggregates the
// per-template summaries.
func (r *Runner) RunAll(ctx context.Context) (RunReport, error) {
	tpls, err := r.templates.Active(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("list active templates: %w", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, r.workers)
		report = RunReport{Templates: len(tpls)}
	)
	for _, tpl := range tpls {
		wg.Add(1)
		sem <- struct{}{}
		go func(tpl models.RecurringTemplate) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := r.engine.Generate(ctx, tpl)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				r.logger.Error("generation failed",
					zap.String("template_id", tpl.ID.String()),
					zap.String("title", tpl.Title),
					zap.Error(err),
				)
				return
			}
			report.Created += summary.Created
			report.SkippedExisting += summary.SkippedExisting
			if summary.Created > 0 {
				r.logger.Info("generated events",
					zap.String("template_id", tpl.ID.String()),
					zap.String("title", tpl.Title),
					zap.Int("created", summary.Created),
					zap.Int("skipped_existing", summary.SkippedExisting),
				)
			}
		}(tpl)
	}
	wg.Wait()

	if r.cache != nil && report.Created > 0 {
		r.cache.Invalidate(ctx)
	}
	return report, nil
}
