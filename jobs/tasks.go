package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockExpiryScan flags batches approaching their expiry date.
	TaskStockExpiryScan = "stock:expiry_scan"
	// TaskStockLowScan flags medicines at or below their reorder level.
	TaskStockLowScan = "stock:low_stock_scan"
)

// ExpiryScanPayload configures an expiry scan run.
type ExpiryScanPayload struct {
	WithinDays int `json:"within_days"`
}

// NewExpiryScanTask constructs an expiry scan task.
func NewExpiryScanTask(withinDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpiryScanPayload{WithinDays: withinDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockExpiryScan, data), nil
}

// NewLowStockScanTask constructs a low stock scan task.
func NewLowStockScanTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskStockLowScan, nil), nil
}
