package site

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	log "github.com/golang/glog"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// Artifact is one output file.
type Artifact struct {
	// Path is relative to the output directory, slash separated
	Path string
	Data []byte
	// Gzip compresses Data before writing
	Gzip bool
}

// Stats summarizes a Write call.
type Stats struct {
	Files int
	Bytes int64
	// Removed counts stale managed files deleted after writing
	Removed int
}

// Writer writes artifacts under Root. Artifacts have no ordering
// dependency on each other and are written concurrently.
type Writer struct {
	Root    string
	Workers int
	// Managed holds doublestar patterns, relative to Root, of files the
	// Writer owns. After a successful Write, owned files that were not
	// part of it are removed.
	Managed []string
}

// NewWriter returns a Writer for root. workers <= 0 uses NumCPU.
func NewWriter(root string, workers int) *Writer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Writer{Root: root, Workers: workers}
}

// Write creates directories as needed and writes every artifact exactly
// once. A path appearing twice is rejected before anything is written.
func (w *Writer) Write(ctx context.Context, artifacts []Artifact) (Stats, error) {
	seen := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		if a.Path == "" || filepath.IsAbs(a.Path) {
			return Stats{}, fmt.Errorf("artifact path %q: %w", a.Path, internalerr.ErrInvalidInput)
		}
		if _, dup := seen[a.Path]; dup {
			return Stats{}, fmt.Errorf("artifact %s produced twice: %w", a.Path, internalerr.ErrInvalidInput)
		}
		seen[a.Path] = struct{}{}
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Workers)
	for _, a := range artifacts {
		a := a
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := w.writeOne(a)
			if err != nil {
				return err
			}
			written.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Files: len(artifacts), Bytes: written.Load()}
	removed, err := w.prune(seen)
	if err != nil {
		return Stats{}, err
	}
	stats.Removed = removed
	log.Infof("wrote %d files (%s) under %s, removed %d stale",
		stats.Files, humanize.Bytes(uint64(stats.Bytes)), w.Root, stats.Removed)
	return stats, nil
}

// prune deletes managed files not in keep.
func (w *Writer) prune(keep map[string]struct{}) (int, error) {
	fsys := os.DirFS(w.Root)
	removed := 0
	for _, pattern := range w.Managed {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return removed, fmt.Errorf("glob %s: %v: %w", pattern, err, internalerr.ErrWrite)
		}
		for _, m := range matches {
			if _, ok := keep[m]; ok {
				continue
			}
			if err := os.Remove(filepath.Join(w.Root, filepath.FromSlash(m))); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("remove stale %s: %v: %w", m, err, internalerr.ErrWrite)
			}
			log.V(1).Infof("removed stale %s", m)
			removed++
		}
	}
	return removed, nil
}

func (w *Writer) writeOne(a Artifact) (int64, error) {
	dst := filepath.Join(w.Root, filepath.FromSlash(a.Path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %s: %v: %w", a.Path, err, internalerr.ErrWrite)
	}

	data := a.Data
	if a.Gzip {
		var err error
		if data, err = compress(data); err != nil {
			return 0, fmt.Errorf("compress %s: %v: %w", a.Path, err, internalerr.ErrWrite)
		}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %v: %w", a.Path, err, internalerr.ErrWrite)
	}
	log.V(2).Infof("wrote %s (%s)", a.Path, humanize.Bytes(uint64(len(data))))
	return int64(len(data)), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
