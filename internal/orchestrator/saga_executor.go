package orchestrator

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SagaStep represents a single step in the saga workflow
type SagaStep struct {
	Name       string
	Type       domain.OperationType
	Execute    func(ctx context.Context) (rollbackData map[string]any, err error)
	Compensate func(ctx context.Context, rollbackData map[string]any) error
}

// SagaExecutor runs steps in order and compensates completed ones in reverse
// when a step fails. Steps are attempted once.
type SagaExecutor struct {
	runID  string
	state  *domain.RunState
	steps  []SagaStep
	logger *zap.Logger
}

// NewSagaExecutor creates a new saga executor
func NewSagaExecutor(logger *zap.Logger) *SagaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.New().String()
	return &SagaExecutor{
		runID:  runID,
		state:  domain.NewRunState(runID),
		steps:  []SagaStep{},
		logger: logger.With(zap.String("run_id", runID)),
	}
}

// AddStep adds a step to the saga
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.state.AddOperation(step.Type)
}

// Execute runs the saga workflow with automatic rollback on failure
func (s *SagaExecutor) Execute(ctx context.Context) error {
	s.state.Status = domain.WorkflowStatusRunning
	for _, step := range s.steps {
		if err := s.executeStep(ctx, step); err != nil {
			s.state.MarkOperationFailed(step.Type, err)
			s.logger.Error("Step failed", zap.String("step", step.Name), zap.Error(err))
			// Create separate context for rollback to ensure it completes
			rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
			rollbackErr := s.rollback(rollbackCtx)
			cancel()
			if rollbackErr != nil {
				return fmt.Errorf("step '%s' failed: %w, rollback also failed: %v",
					step.Name, err, rollbackErr)
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	s.state.Status = domain.WorkflowStatusCompleted
	return nil
}

func (s *SagaExecutor) executeStep(ctx context.Context, step SagaStep) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.MarkOperationStarted(step.Type)
	s.logger.Debug("Executing step", zap.String("step", step.Name))
	rollbackData, err := step.Execute(ctx)
	if err != nil {
		return err
	}
	s.state.MarkOperationCompleted(step.Type, rollbackData)
	return nil
}

// rollback executes compensating actions for completed operations
func (s *SagaExecutor) rollback(ctx context.Context) error {
	completedOps := s.state.GetCompletedOperations()
	if len(completedOps) == 0 {
		s.logger.Debug("No operations to roll back")
		return nil
	}
	s.logger.Info("Starting rollback", zap.Int("operations", len(completedOps)))
	for _, op := range completedOps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rollback canceled: %w", err)
		}
		step := s.findStepByType(op.Type)
		if step == nil || step.Compensate == nil {
			continue
		}
		s.logger.Info("Rolling back", zap.String("step", step.Name))
		if err := step.Compensate(ctx, op.RollbackData); err != nil {
			return fmt.Errorf("rollback failed for %s: %w", step.Name, err)
		}
		s.state.MarkOperationRolledBack(op.Type)
	}
	s.state.Status = domain.WorkflowStatusRolledBack
	s.logger.Info("Rollback completed")
	return nil
}

// findStepByType finds a saga step by operation type
func (s *SagaExecutor) findStepByType(opType domain.OperationType) *SagaStep {
	for i := range s.steps {
		if s.steps[i].Type == opType {
			return &s.steps[i]
		}
	}
	return nil
}

// GetState returns the current saga state
func (s *SagaExecutor) GetState() *domain.RunState {
	return s.state
}

// RunID identifies this run in logs.
func (s *SagaExecutor) RunID() string {
	return s.runID
}

// SetVersion sets the version in the state
func (s *SagaExecutor) SetVersion(version string) {
	s.state.Version = version
}
