package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantIntegrityScan removes project grants whose project no longer
	// exists and reports grants that point across workspace boundaries.
	TaskGrantIntegrityScan = "grants:integrity_scan"
	// TaskCatalogOrphanScan reports user-role assignments referencing
	// deleted workspaces or roles.
	TaskCatalogOrphanScan = "catalog:orphan_scan"
)

// GrantIntegrityScanPayload configures a grant integrity scan run.
type GrantIntegrityScanPayload struct {
	// DryRun reports what would be deleted without deleting.
	DryRun bool `json:"dry_run"`
}

// NewGrantIntegrityScanTask constructs an Asynq task.
func NewGrantIntegrityScanTask(payload GrantIntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantIntegrityScan, data), nil
}

// CatalogOrphanScanPayload configures an orphan scan run.
type CatalogOrphanScanPayload struct{}

// NewCatalogOrphanScanTask constructs an Asynq task.
func NewCatalogOrphanScanTask() (*asynq.Task, error) {
	data, err := json.Marshal(CatalogOrphanScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogOrphanScan, data), nil
}
