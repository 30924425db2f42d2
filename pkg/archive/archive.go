// Package archive assembles named byte blobs into a single zip file.
package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	errs "threadsdl/pkg/errors"
)

type entry struct {
	name string
	data []byte
}

// Builder accumulates entries in memory. Names must be unique.
type Builder struct {
	entries  []entry
	names    map[string]struct{}
	level    int
	modified time.Time
}

// New creates an empty Builder using the best deflate compression
func New() *Builder {
	return &Builder{
		names:    make(map[string]struct{}),
		level:    flate.BestCompression,
		modified: time.Now(),
	}
}

// SetLevel overrides the deflate level
func (b *Builder) SetLevel(level int) {
	b.level = level
}

// Add stores data under name. Empty and duplicate names are rejected.
func (b *Builder) Add(name string, data []byte) error {
	if name == "" {
		return errs.New(errs.ErrorTypeArchive, "entry name is empty")
	}
	if _, dup := b.names[name]; dup {
		return errs.New(errs.ErrorTypeArchive, fmt.Sprintf("duplicate entry %q", name))
	}

	b.names[name] = struct{}{}
	b.entries = append(b.entries, entry{name: name, data: data})
	return nil
}

// Len returns the number of entries
func (b *Builder) Len() int {
	return len(b.entries)
}

// Names returns entry names in insertion order
func (b *Builder) Names() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.name
	}
	return names
}

// WriteTo serializes the archive to w
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	level := b.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, e := range b.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: b.modified,
		})
		if err != nil {
			return cw.n, errs.Wrap(errs.ErrorTypeArchive, fmt.Sprintf("failed to create entry %q", e.name), err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return cw.n, errs.Wrap(errs.ErrorTypeArchive, fmt.Sprintf("failed to write entry %q", e.name), err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, errs.Wrap(errs.ErrorTypeArchive, "failed to finalize archive", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
