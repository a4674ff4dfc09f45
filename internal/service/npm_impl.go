package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/monorelease/internal/domain"
)

const githubActionsTrue = "true"

// npmService is the implementation of the NpmService interface.
type npmService struct {
	bin string
	// timeout for command execution
	timeout time.Duration
}

// NewNpmService creates a new NpmService running bin.
func NewNpmService(bin string) NpmService {
	if bin == "" {
		bin = DefaultNPMBin
	}
	return &npmService{
		bin:     bin,
		timeout: DefaultNPMTimeout,
	}
}

// resolvePathWithSymlinks resolves a path and evaluates symlinks.
func (s *npmService) resolvePathWithSymlinks(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	return resolvedPath, nil
}

// sanitizePath resolves dir and checks that it holds a package.json.
func (s *npmService) sanitizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	absPath, err := s.resolvePathWithSymlinks(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	packageJSONPath := filepath.Join(absPath, domain.ManifestFileName)
	if _, err := os.Stat(packageJSONPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("package.json not found in directory: %s", absPath)
		}
		return "", fmt.Errorf("failed to check package.json: %w", err)
	}
	return absPath, nil
}

// executeCommand runs a command with timeout and returns its captured output.
func (s *npmService) executeCommand(
	ctx context.Context,
	dir string,
	name string,
	args ...string,
) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	// Stream stderr for CI visibility while still capturing it
	if os.Getenv("GITHUB_ACTIONS") == githubActionsTrue {
		cmd.Stderr = io.MultiWriter(&errBuf, os.Stderr)
	}

	err = cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("command timed out after %v: %w", s.timeout, err)
	}
	return outBuf.String(), errBuf.String(), err
}

// Version bumps the package in dir. npm commits the staged tree and tags it.
func (s *npmService) Version(ctx context.Context, dir string, kind domain.BumpKind, message string) (string, error) {
	if !kind.Valid() {
		return "", &domain.InvalidBumpKindError{Kind: string(kind)}
	}
	safePath, err := s.sanitizePath(dir)
	if err != nil {
		return "", fmt.Errorf("invalid package path: %w", err)
	}
	stdout, stderr, err := s.executeCommand(
		ctx, safePath, s.bin, "version", kind.String(), "--force", "-m", message,
	)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &domain.BumpError{Kind: kind, ExitCode: exitCode, Stderr: stderr, Err: err}
	}
	return lastLine(stdout), nil
}

// lastLine returns the final non-empty line, where npm prints the new tag.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
