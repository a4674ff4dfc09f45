package service

import "time"

// Timeout constants for service operations
const (
	// DefaultNPMTimeout is the timeout for npm operations
	DefaultNPMTimeout = 5 * time.Minute
	// DefaultNPMBin is the npm executable looked up on PATH
	DefaultNPMBin = "npm"
)
