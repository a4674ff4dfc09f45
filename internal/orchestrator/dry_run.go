package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	"go.uber.org/zap"
)

// executeDryRun classifies the release and lists what would change without
// touching the working tree, the index or the remote.
func (o *ReleaseOrchestrator) executeDryRun(ctx context.Context, cfg ReleaseConfig) (*domain.Release, error) {
	logger := o.logger.With(zap.Bool("dry_run", true))
	classified, err := o.classify(ctx, cfg.Ref, logger)
	if err != nil {
		return nil, err
	}
	o.printCIOutput(cfg.CIOutput, "bump=%s\n", classified.Kind)
	previous, next, err := o.calculateVersion(ctx, cfg.WorkingDir, classified.Kind)
	if err != nil {
		return nil, err
	}
	o.printCIOutput(cfg.CIOutput, "previous_version=%s\n", previous)
	manifests, err := o.propagator(logger).Discover(ctx, cfg.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to plan propagation: %w", err)
	}
	modules := make([]string, 0, len(manifests))
	for _, m := range manifests {
		modules = append(modules, filepath.Base(filepath.Dir(m.Path)))
	}
	o.printCIOutput(cfg.CIOutput, "modules=%s\n", strings.Join(modules, ","))
	o.printCIOutput(cfg.CIOutput, "version=%s\n", next)
	o.printStatus(cfg.CIOutput, fmt.Sprintf("Dry run: would prepare %s release %s (from %s)",
		classified.Kind, next, previous))
	if len(modules) > 0 {
		o.printStatus(cfg.CIOutput, fmt.Sprintf("Modules to bump: %s", strings.Join(modules, ", ")))
	}
	o.printStatus(cfg.CIOutput, fmt.Sprintf("Would run npm version %s and push tag %s", classified.Kind, next.Tag()))
	return &domain.Release{
		Kind:     classified.Kind,
		Previous: previous,
		Next:     next,
		Ref:      classified.Ref,
		HeadSHA:  classified.SHA,
		Modules:  modules,
	}, nil
}
