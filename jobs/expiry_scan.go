package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/medbill/medbill/internal/stock"
)

// ExpiryScanJob reports batches that expire within the configured
// window so the counter staff can rotate or return them in time.
type ExpiryScanJob struct {
	stock  *stock.Service
	logger *slog.Logger
}

// NewExpiryScanJob constructs the job.
func NewExpiryScanJob(stockService *stock.Service, logger *slog.Logger) *ExpiryScanJob {
	return &ExpiryScanJob{stock: stockService, logger: logger}
}

// Handle processes TaskStockExpiryScan tasks.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WithinDays <= 0 {
		payload.WithinDays = 30
	}

	batches, err := j.stock.Expiring(ctx, payload.WithinDays)
	if err != nil {
		return err
	}
	for _, b := range batches {
		j.logger.Warn("batch approaching expiry",
			slog.Int64("batch_id", b.ID),
			slog.String("batch_no", b.BatchNo),
			slog.String("medicine", b.MedicineName),
			slog.Int64("quantity", b.Quantity),
			slog.String("expiry_date", b.ExpiryDate.Format("2006-01-02")))
	}
	j.logger.Info("expiry scan finished",
		slog.Int("within_days", payload.WithinDays),
		slog.Int("flagged", len(batches)))
	return nil
}
