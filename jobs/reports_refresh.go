package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/backoffice/internal/jobs"
	"github.com/odyssey-erp/backoffice/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// refreshTimeout bounds a single refresh run.
const refreshTimeout = 30 * time.Second

// ReportRefresher is satisfied by *reports.Service.
type ReportRefresher interface {
	Refresh(ctx context.Context) (reports.SalesSummary, error)
}

// ReportsRefreshJob keeps the sales summary cache warm.
type ReportsRefreshJob struct {
	Reports ReportRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsRefreshJob wires dependencies for the refresh handler.
func NewReportsRefreshJob(refresher ReportRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsRefreshJob {
	return &ReportsRefreshJob{Reports: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes reports refresh tasks.
func (j *ReportsRefreshJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports refresh: handler not configured")
	}
	var payload ReportsRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("reports refresh: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	tracker := j.metrics().Track(TaskReportsRefresh)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	summary, err := j.Reports.Refresh(runCtx)
	if err != nil {
		logger.Error("refresh reports", slog.Any("error", err))
		return err
	}
	logger.Info("refreshed reports",
		slog.String("day", summary.From),
		slog.Int64("transactions", summary.TransactionCount),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportsRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskReportsRefresh))
}

func (j *ReportsRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
