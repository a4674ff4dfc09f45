package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/usecase"
	"go.uber.org/zap"
)

const rollbackKeySnapshots = "snapshots"

// manifestRestorer puts module files back the way they were before propagation.
type manifestRestorer interface {
	Restore(ctx context.Context, snapshots []usecase.FileSnapshot) error
}

// CompensatingActions provides idempotent rollback operations for release workflow steps
type CompensatingActions struct {
	restorer manifestRestorer
	logger   *zap.Logger
}

// NewCompensatingActions creates a new compensating actions handler
func NewCompensatingActions(restorer manifestRestorer, logger *zap.Logger) *CompensatingActions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompensatingActions{restorer: restorer, logger: logger}
}

// RestoreManifests writes back the module manifests and lock files captured
// before propagation, then re-stages the tree.
func (ca *CompensatingActions) RestoreManifests(ctx context.Context, rollbackData map[string]any) error {
	raw, ok := rollbackData[rollbackKeySnapshots]
	if !ok {
		return nil
	}
	snapshots, ok := raw.([]usecase.FileSnapshot)
	if !ok {
		return fmt.Errorf("unexpected snapshot data of type %T", raw)
	}
	if len(snapshots) == 0 {
		return nil
	}
	if err := ca.restorer.Restore(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to restore module manifests: %w", err)
	}
	ca.logger.Info("Restored module manifests", zap.Int("files", len(snapshots)))
	return nil
}

// NoOp is a compensating action for read-only steps
func (ca *CompensatingActions) NoOp(_ context.Context, _ map[string]any) error {
	return nil
}
