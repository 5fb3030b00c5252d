// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers LookPath and RunSilent from tables and delegates
// piped runs to a function.
type fakeExecutor struct {
	bins  map[string]bool
	cmds  map[string]bool
	piped func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
	calls []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if f.cmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (f *fakeExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if f.piped != nil {
		return f.piped(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		bins      map[string]bool
		cmds      map[string]bool
		want      string
		wantErr   string
	}{
		{
			name: "docker available",
			bins: map[string]bool{"docker": true},
			cmds: map[string]bool{"docker info": true},
			want: "docker",
		},
		{
			name: "podman fallback",
			bins: map[string]bool{"podman": true},
			cmds: map[string]bool{"podman info": true},
			want: "podman",
		},
		{
			name: "docker on path but daemon down",
			bins: map[string]bool{"docker": true, "podman": true},
			cmds: map[string]bool{"podman info": true},
			want: "podman",
		},
		{
			name:      "both available, podman requested",
			preferred: "podman",
			bins:      map[string]bool{"docker": true, "podman": true},
			cmds:      map[string]bool{"docker info": true, "podman info": true},
			want:      "podman",
		},
		{
			name:      "requested runtime missing",
			preferred: "docker",
			bins:      map[string]bool{"podman": true},
			cmds:      map[string]bool{"podman info": true},
			wantErr:   "no container runtime available: docker",
		},
		{
			name:    "neither available",
			wantErr: "docker, podman",
		},
		{
			name:      "unknown runtime",
			preferred: "lxc",
			wantErr:   "unknown container runtime",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &fakeExecutor{bins: tt.bins, cmds: tt.cmds}
			rt, err := detect(context.Background(), e, tt.preferred)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mk      func(executor) *runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{"docker found", newDockerRuntime, map[string]bool{"docker image inspect markitdown:latest": true}, false},
		{"docker missing", newDockerRuntime, nil, true},
		{"podman found", newPodmanRuntime, map[string]bool{"podman image exists markitdown:latest": true}, false},
		{"podman missing", newPodmanRuntime, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mk(&fakeExecutor{cmds: tt.cmds})
			err := rt.ImageExists(context.Background(), "markitdown:latest")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "markitdown:latest")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	t.Run("pipes stdin to stdout without network", func(t *testing.T) {
		e := &fakeExecutor{piped: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
			data, _ := io.ReadAll(stdin)
			_, _ = stdout.Write([]byte("# converted\n" + string(data)))
			return nil
		}}
		var out bytes.Buffer
		err := newPodmanRuntime(e).Run(context.Background(), "markitdown:latest", strings.NewReader("pdf bytes"), &out)
		require.NoError(t, err)
		assert.Equal(t, "# converted\npdf bytes", out.String())
		assert.Equal(t, []string{"podman run --rm -i --network none markitdown:latest"}, e.calls)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		e := &fakeExecutor{piped: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
			_, _ = stderr.Write([]byte("unsupported file type\n"))
			return errors.New("exit status 1")
		}}
		err := newDockerRuntime(e).Run(context.Background(), "markitdown:latest", strings.NewReader(""), io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit status 1")
		assert.Contains(t, err.Error(), "unsupported file type")
	})
}
