package domain

import (
	"time"
)

// WorkflowStatus represents the overall status of a release run
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "pending"
	WorkflowStatusRunning    WorkflowStatus = "running"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFailed     WorkflowStatus = "failed"
	WorkflowStatusRolledBack WorkflowStatus = "rolled_back"
)

// OperationStatus represents the status of an individual operation
type OperationStatus string

const (
	OperationStatusPending    OperationStatus = "pending"
	OperationStatusRunning    OperationStatus = "running"
	OperationStatusCompleted  OperationStatus = "completed"
	OperationStatusFailed     OperationStatus = "failed"
	OperationStatusRolledBack OperationStatus = "rolled_back"
)

// OperationType identifies the type of operation
type OperationType string

const (
	OperationTypeClassifyRelease   OperationType = "classify_release"
	OperationTypeCalculateVersion  OperationType = "calculate_version"
	OperationTypePropagateVersions OperationType = "propagate_versions"
	OperationTypePublishRelease    OperationType = "publish_release"
)

// RunState tracks the operations of a single release run in memory.
type RunState struct {
	RunID      string
	StartedAt  time.Time
	UpdatedAt  time.Time
	Version    string
	Operations []OperationRecord
	Status     WorkflowStatus
	Error      string
}

// OperationRecord represents a single operation in the run
type OperationRecord struct {
	Type         OperationType
	Status       OperationStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	RollbackData map[string]any
	Error        string
}

// NewRunState creates a new run state
func NewRunState(runID string) *RunState {
	now := time.Now()
	return &RunState{
		RunID:      runID,
		StartedAt:  now,
		UpdatedAt:  now,
		Operations: []OperationRecord{},
		Status:     WorkflowStatusPending,
	}
}

// AddOperation adds a new operation record to the state
func (rs *RunState) AddOperation(opType OperationType) *OperationRecord {
	op := OperationRecord{
		Type:      opType,
		Status:    OperationStatusPending,
		StartedAt: time.Now(),
	}
	rs.Operations = append(rs.Operations, op)
	rs.UpdatedAt = time.Now()
	return &rs.Operations[len(rs.Operations)-1]
}

// GetCompletedOperations returns all successfully completed operations in reverse order
func (rs *RunState) GetCompletedOperations() []OperationRecord {
	var completed []OperationRecord
	for i := len(rs.Operations) - 1; i >= 0; i-- {
		if rs.Operations[i].Status == OperationStatusCompleted {
			completed = append(completed, rs.Operations[i])
		}
	}
	return completed
}

// MarkOperationStarted marks an operation as started
func (rs *RunState) MarkOperationStarted(opType OperationType) {
	if op := rs.find(opType, OperationStatusPending); op != nil {
		op.Status = OperationStatusRunning
		op.StartedAt = time.Now()
		rs.UpdatedAt = op.StartedAt
	}
}

// MarkOperationCompleted marks an operation as completed with rollback data
func (rs *RunState) MarkOperationCompleted(opType OperationType, rollbackData map[string]any) {
	if op := rs.find(opType, OperationStatusRunning); op != nil {
		now := time.Now()
		op.Status = OperationStatusCompleted
		op.CompletedAt = &now
		op.RollbackData = rollbackData
		rs.UpdatedAt = now
	}
}

// MarkOperationFailed marks an operation and the run as failed
func (rs *RunState) MarkOperationFailed(opType OperationType, err error) {
	if op := rs.find(opType, OperationStatusRunning); op != nil {
		now := time.Now()
		op.Status = OperationStatusFailed
		op.CompletedAt = &now
		op.Error = err.Error()
		rs.UpdatedAt = now
	}
	rs.Status = WorkflowStatusFailed
	rs.Error = err.Error()
}

// MarkOperationRolledBack marks a completed operation as compensated
func (rs *RunState) MarkOperationRolledBack(opType OperationType) {
	if op := rs.find(opType, OperationStatusCompleted); op != nil {
		op.Status = OperationStatusRolledBack
		rs.UpdatedAt = time.Now()
	}
}

func (rs *RunState) find(opType OperationType, status OperationStatus) *OperationRecord {
	for i := range rs.Operations {
		if rs.Operations[i].Type == opType && rs.Operations[i].Status == status {
			return &rs.Operations[i]
		}
	}
	return nil
}
