package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/medbill/medbill/internal/medicines"
)

// LowStockScanJob reports medicines whose on-hand quantity across all
// batches has fallen to or below the reorder level.
type LowStockScanJob struct {
	medicines *medicines.Service
	logger    *slog.Logger
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(medicinesService *medicines.Service, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{medicines: medicinesService, logger: logger}
}

// Handle processes TaskStockLowScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	entries, err := j.medicines.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		j.logger.Warn("medicine below reorder level",
			slog.Int64("medicine_id", e.MedicineID),
			slog.String("name", e.Name),
			slog.Int64("on_hand", e.OnHand),
			slog.Int64("reorder_level", e.ReorderLevel))
	}
	j.logger.Info("low stock scan finished", slog.Int("flagged", len(entries)))
	return nil
}
