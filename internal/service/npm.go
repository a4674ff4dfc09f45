package service

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
)

// NpmService defines the interface for interacting with npm.

type NpmService interface {
	// Version runs `npm version <kind>` in dir, committing and tagging with
	// message, and returns the version npm reports.
	Version(ctx context.Context, dir string, kind domain.BumpKind, message string) (string, error)
}
