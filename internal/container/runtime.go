// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs one-shot conversion containers under docker or
// podman. Input is piped to the container's stdin and its stdout is
// captured; nothing is mounted.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// Auto selects docker when it responds and podman otherwise.
	Auto = "auto"
)

// Runtime checks images and runs containers.
type Runtime interface {
	// Name returns the runtime binary ("docker" or "podman").
	Name() string

	// Available reports whether the binary is on PATH and its daemon
	// answers an info command.
	Available(ctx context.Context) bool

	// ImageExists returns nil when image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts image with --rm -i, piping stdin in and stdout out.
	Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime differs between docker and podman only in the binary name and
// the image existence subcommand.
type runtime struct {
	bin        string
	imageCheck []string
	exec       executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(ctx, r.bin, "info") == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, r.imageCheck...), image)
	if err := r.exec.RunSilent(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	args := []string{"run", "--rm", "-i", "--network", "none", image}
	if err := r.exec.RunPiped(ctx, r.bin, args, stdin, stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s container %s: %w: %s", r.bin, image, err, msg)
		}
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

func newDockerRuntime(e executor) *runtime {
	return &runtime{bin: binDocker, imageCheck: []string{"image", "inspect"}, exec: e}
}

func newPodmanRuntime(e executor) *runtime {
	return &runtime{bin: binPodman, imageCheck: []string{"image", "exists"}, exec: e}
}

// Detect returns the runtime named by preferred ("docker" or "podman"), or
// with "" or Auto the first of docker and podman that responds.
func Detect(ctx context.Context, preferred string) (Runtime, error) {
	return detect(ctx, osExecutor{}, preferred)
}

func detect(ctx context.Context, e executor, preferred string) (Runtime, error) {
	var candidates []*runtime
	switch strings.ToLower(strings.TrimSpace(preferred)) {
	case "", Auto:
		candidates = []*runtime{newDockerRuntime(e), newPodmanRuntime(e)}
	case binDocker:
		candidates = []*runtime{newDockerRuntime(e)}
	case binPodman:
		candidates = []*runtime{newPodmanRuntime(e)}
	default:
		return nil, fmt.Errorf("unknown container runtime %q: use docker, podman or auto", preferred)
	}

	names := make([]string, 0, len(candidates))
	for _, rt := range candidates {
		if rt.Available(ctx) {
			return rt, nil
		}
		names = append(names, rt.bin)
	}
	return nil, fmt.Errorf("no container runtime available: %s not found or not running", strings.Join(names, ", "))
}
