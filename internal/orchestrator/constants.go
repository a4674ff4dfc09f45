package orchestrator

import (
	"os"
	"time"
)

// Timeout constants for different operations
var (
	// DefaultWorkflowTimeout bounds a release run when no timeout is configured
	DefaultWorkflowTimeout = getTimeoutOrDefault("MONORELEASE_WORKFLOW_TIMEOUT", 30*time.Minute)
	// RollbackTimeout is the timeout for rollback operations
	RollbackTimeout = getTimeoutOrDefault("MONORELEASE_ROLLBACK_TIMEOUT", 2*time.Minute)
)

// getTimeoutOrDefault reads a duration from envVar, falling back to def
func getTimeoutOrDefault(envVar string, def time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil {
			return duration
		}
	}
	return def
}
