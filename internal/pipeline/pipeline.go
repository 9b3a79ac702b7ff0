// Package pipeline orchestrates the trades ETL run.
// A run is a fixed sequence with no branching: fetch trades from the
// exchange, transform them into a table, write the CSV artifact, upload it to
// object storage. Each step executes exactly once; the first failure aborts
// the run with no cleanup of a partially written artifact.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	"github.com/lucasvieira/go-trades-etl/internal/csvio"
	"github.com/lucasvieira/go-trades-etl/internal/exchange"
	"github.com/lucasvieira/go-trades-etl/internal/logger"
	"github.com/lucasvieira/go-trades-etl/internal/models"
	"github.com/lucasvieira/go-trades-etl/internal/storage"
	"github.com/lucasvieira/go-trades-etl/internal/transform"
)

// RunResult summarizes a completed pipeline run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Symbol       string        `json:"symbol"`
	Rows         int           `json:"rows"`
	ArtifactPath string        `json:"artifact_path"`
	ObjectKey    string        `json:"object_key"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Pipeline wires the four ETL steps together. Components are injected as
// interfaces so tests can substitute doubles.
type Pipeline struct {
	fetcher  exchange.TradeFetcher
	uploader storage.ObjectUploader
	cfg      *config.AppConfig
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a pipeline over the given components.
func New(fetcher exchange.TradeFetcher, uploader storage.ObjectUploader, cfg *config.AppConfig, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		fetcher:  fetcher,
		uploader: uploader,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Run executes one full ETL pass and returns its summary. Any step failure
// aborts the run and surfaces the classified error to the caller.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:     uuid.New().String(),
		Symbol:    p.cfg.API.Symbol,
		StartedAt: p.now().UTC(),
	}

	log := p.logger.With(slog.String("run_id", result.RunID), slog.String("symbol", result.Symbol))
	log.Info("pipeline run started")

	var trades []models.Trade
	if err := logger.TimedStep(log, "fetch", func() error {
		resp, err := p.fetcher.FetchTrades(ctx, exchange.FetchRequest{Symbol: result.Symbol})
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		trades = resp.Trades
		return nil
	}); err != nil {
		return nil, err
	}

	var table *models.TradeTable
	if err := logger.TimedStep(log, "transform", func() error {
		var err error
		table, err = transform.ToTable(trades)
		if err != nil {
			return fmt.Errorf("transform failed: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	result.Rows = table.Len()

	if err := logger.TimedStep(log, "write", func() error {
		if err := os.MkdirAll(p.cfg.CSV.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		result.ArtifactPath = csvio.ArtifactPath(p.cfg.CSV, p.now())
		if err := csvio.WriteTable(table, result.ArtifactPath); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := logger.TimedStep(log, "upload", func() error {
		key, err := p.uploader.Upload(ctx, result.ArtifactPath)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		result.ObjectKey = key
		return nil
	}); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	log.Info("pipeline run completed",
		slog.Int("rows", result.Rows),
		slog.String("artifact_path", result.ArtifactPath),
		slog.String("object_key", result.ObjectKey),
		slog.Duration("duration", result.Duration))

	return result, nil
}
