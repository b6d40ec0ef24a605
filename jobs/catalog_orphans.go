package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogOrphanJob reports catalog rows referencing entities that no longer
// exist. Reporting only; deletion of role assignments is an operator action.
type CatalogOrphanJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewCatalogOrphanJob constructs a CatalogOrphanJob.
func NewCatalogOrphanJob(pool *pgxpool.Pool, logger *slog.Logger) *CatalogOrphanJob {
	return &CatalogOrphanJob{pool: pool, logger: logger}
}

// Handle processes TaskCatalogOrphanScan tasks.
func (j *CatalogOrphanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var orphanedWorkspaces int64
	err := j.pool.QueryRow(ctx, `
		SELECT count(*) FROM user_role_assignments ura
		WHERE NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = ura.workspace_id)`).Scan(&orphanedWorkspaces)
	if err != nil {
		return err
	}

	var orphanedRoles int64
	err = j.pool.QueryRow(ctx, `
		SELECT count(*) FROM user_role_assignments ura
		WHERE NOT EXISTS (SELECT 1 FROM roles r WHERE r.id = ura.role_id)`).Scan(&orphanedRoles)
	if err != nil {
		return err
	}

	if j.logger != nil {
		j.logger.Info("catalog orphan scan finished",
			slog.Int64("assignments_missing_workspace", orphanedWorkspaces),
			slog.Int64("assignments_missing_role", orphanedRoles))
	}
	return nil
}
