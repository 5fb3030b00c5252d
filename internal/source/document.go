// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/smart-discovery/internal/container"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

const defaultConvertImage = "markitdown:latest"

// documentExtensions are the file types converted to Markdown in a
// container before parsing.
var documentExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
}

// IsDocumentRef reports whether ref is a local file that needs conversion.
func IsDocumentRef(ref string) bool {
	return documentExtensions[strings.ToLower(filepath.Ext(ref))]
}

// detectFunc picks a container runtime. Swapped in tests.
type detectFunc func(ctx context.Context, preferred string) (container.Runtime, error)

// DocumentReader converts PDF and Office files to Markdown by piping them
// through the markitdown image, then parses the result like pasted text.
// The runtime is detected on first use so configurations without docker
// or podman still read other sources.
type DocumentReader struct {
	cfg    types.ConvertConfig
	detect detectFunc

	once    sync.Once
	runtime container.Runtime
	err     error
}

// NewDocumentReader builds a reader from convert settings.
func NewDocumentReader(cfg types.ConvertConfig) *DocumentReader {
	if cfg.Image == "" {
		cfg.Image = defaultConvertImage
	}
	return &DocumentReader{cfg: cfg, detect: container.Detect}
}

func (r *DocumentReader) resolve(ctx context.Context) (container.Runtime, error) {
	r.once.Do(func() {
		rt, err := r.detect(ctx, r.cfg.Runtime)
		if err != nil {
			r.err = err
			return
		}
		if err := rt.ImageExists(ctx, r.cfg.Image); err != nil {
			r.err = fmt.Errorf("converter image not available in %s: %w", rt.Name(), err)
			return
		}
		slog.Debug("document converter ready", "runtime", rt.Name(), "image", r.cfg.Image)
		r.runtime = rt
	})
	return r.runtime, r.err
}

// Read implements Reader.
func (r *DocumentReader) Read(ctx context.Context, ref string) (types.Document, error) {
	f, err := os.Open(ref)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening %s: %w", ref, err)
	}
	defer f.Close()

	rt, err := r.resolve(ctx)
	if err != nil {
		return types.Document{}, err
	}

	var out bytes.Buffer
	if err := rt.Run(ctx, r.cfg.Image, f, &out); err != nil {
		return types.Document{}, fmt.Errorf("converting %s: %w", ref, err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return types.Document{}, fmt.Errorf("converting %s: %w", ref, ErrNoContent)
	}

	base := filepath.Base(ref)
	return ParseText(out.String(), types.SourceMeta{
		ID:  strings.TrimSuffix(base, filepath.Ext(base)),
		URL: ref,
	})
}
