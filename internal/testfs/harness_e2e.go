//go:build e2e

package testfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/docker/docker/api/types/container"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

const (
	// baseImage is the Docker image used for E2E tests.
	baseImage = "alpine:3.21"

	// Binary names and paths inside container.
	binaryName       = "crunch"
	helperBinaryName = "testfs-helper"
	binaryPath       = "/tmp/" + binaryName
	helperBinaryPath = "/tmp/" + helperBinaryName
)

// -----------------------------------------------------------------------------
// Harness - Public API
// -----------------------------------------------------------------------------

// Harness provides E2E test infrastructure for the crunch binary using
// Docker containers.
//
// Usage:
//
//	given := testfs.FileTree{
//	    Volumes: []Volume{
//	        {MountPoint: "/replays", Files: []File{
//	            {Path: "game_1.slp", Chunks: []Chunk{{Pattern: 'A', Size: "4KiB"}}},
//	        }},
//	    },
//	}
//	h := testfs.New(t, given)
//	result := h.RunCrunch("run", "--output", "/replays/queue.json", "--no-progress")
//	h.RequireExitCode(result, 0)
type Harness struct {
	t         *testing.T
	ctx       context.Context
	given     FileTree
	container *Container
}

// New creates a new Harness with the given FileTree specification.
//
// The harness:
//  1. Starts a Docker container with tmpfs volumes for each Volume in the spec
//  2. Bind-mounts pre-built crunch/testfs-helper binaries into the container
//  3. Creates fixture files and symlinks according to the spec
//
// Requires the CRUNCH_E2E_BINDIR env var, naming the directory that holds
// the pre-built crunch and testfs-helper binaries.
// The container is automatically cleaned up when the test finishes via t.Cleanup().
func New(t *testing.T, given FileTree) *Harness {
	t.Helper()

	ctx := context.Background()
	h := &Harness{
		t:     t,
		ctx:   ctx,
		given: given,
	}

	// Build container config
	cfg, hostCfg, err := h.buildContainerConfig()
	if err != nil {
		t.Fatalf("failed to build container config: %v", err)
	}

	// Create container
	c, err := NewContainer(ctx, cfg, hostCfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	h.container = c

	// Register cleanup
	t.Cleanup(func() {
		h.Cleanup()
	})

	// Setup files according to spec
	if err := h.sowFileTree(); err != nil {
		t.Fatalf("failed to setup files: %v", err)
	}

	return h
}

// RunCrunch executes the crunch binary inside the container with the
// given arguments and no stdin. --output must be passed explicitly;
// otherwise the interactive prompt would block waiting for a filename.
func (h *Harness) RunCrunch(args ...string) *RunResult {
	h.t.Helper()

	cmd := append([]string{binaryPath}, args...)
	stdout, stderr, exitCode, err := h.container.Run(h.ctx, cmd, nil)
	if err != nil {
		h.t.Fatalf("failed to run crunch: %v", err)
	}

	return &RunResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
}

// RunCrunchWithStdin behaves like RunCrunch but feeds stdin, exercising
// the interactive output-filename prompt (spec §6).
func (h *Harness) RunCrunchWithStdin(stdin []byte, args ...string) *RunResult {
	h.t.Helper()

	cmd := append([]string{binaryPath}, args...)
	stdout, stderr, exitCode, err := h.container.Run(h.ctx, cmd, stdin)
	if err != nil {
		h.t.Fatalf("failed to run crunch: %v", err)
	}

	return &RunResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
}

// RequireExitCode fails the test if result's exit code doesn't match want.
func (h *Harness) RequireExitCode(result *RunResult, want int) {
	h.t.Helper()
	if result.ExitCode != want {
		h.t.Errorf("exit code: got %d, want %d\nstdout: %s\nstderr: %s",
			result.ExitCode, want, result.Stdout, result.Stderr)
	}
}

// ReadQueueJSON reads and decodes the queue document crunch wrote at the
// given container path, failing the test on any error.
func (h *Harness) ReadQueueJSON(path string) map[string]any {
	h.t.Helper()

	stdout, stderr, exitCode, err := h.container.Run(h.ctx, []string{"cat", path}, nil)
	if err != nil || exitCode != 0 {
		h.t.Fatalf("read %s: exit %d, err %v, stderr %s", path, exitCode, err, stderr)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		h.t.Fatalf("decode queue JSON %s: %v", path, err)
	}
	return doc
}

// Cleanup terminates the container and releases resources.
func (h *Harness) Cleanup() {
	if h.container != nil {
		_ = h.container.Close(h.ctx)
		h.container = nil
	}
}

// -----------------------------------------------------------------------------
// Container Configuration
// -----------------------------------------------------------------------------

// buildContainerConfig creates Docker container and host configs for E2E tests.
func (h *Harness) buildContainerConfig() (*container.Config, *container.HostConfig, error) {
	// Get binary directory from environment
	binDir := os.Getenv("CRUNCH_E2E_BINDIR")
	if binDir == "" {
		return nil, nil, fmt.Errorf("CRUNCH_E2E_BINDIR not set - point it at the directory holding the crunch and testfs-helper binaries")
	}

	// Extract mount paths from volumes
	mountPaths := make([]string, len(h.given.Volumes))
	for i, v := range h.given.Volumes {
		mountPaths[i] = v.MountPoint
	}

	// Sort mount paths so parents come before children
	sort.Strings(mountPaths)

	// Build tmpfs mounts
	tmpfs := make(map[string]string)
	for _, path := range mountPaths {
		tmpfs[path] = "size=100m"
	}

	// Build bind mounts for binaries (read-only)
	binds := []string{
		fmt.Sprintf("%s:%s:ro", filepath.Join(binDir, binaryName), binaryPath),
		fmt.Sprintf("%s:%s:ro", filepath.Join(binDir, helperBinaryName), helperBinaryPath),
	}

	cfg := &container.Config{
		Image: baseImage,
		Cmd:   []string{"sleep", "infinity"},
	}

	hostCfg := &container.HostConfig{
		Binds:      binds,
		Tmpfs:      tmpfs,
		AutoRemove: true,
	}

	return cfg, hostCfg, nil
}

// -----------------------------------------------------------------------------
// FileTree Operations
// -----------------------------------------------------------------------------

// sowFileTree creates filesystem from FileTree spec using testfs-helper.
func (h *Harness) sowFileTree() error {
	specJSON, err := json.Marshal(h.given)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	cmd := []string{helperBinaryPath, "sow"}
	stdout, stderr, exitCode, err := h.container.Run(h.ctx, cmd, specJSON)
	if err != nil {
		return fmt.Errorf("run sow: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("sow failed (exit %d): %s%s", exitCode, stdout, stderr)
	}
	return nil
}
