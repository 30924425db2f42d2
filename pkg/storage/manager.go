package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	errs "threadsdl/pkg/errors"
)

// Manager handles archive output
type Manager struct {
	outputDir string
	overwrite bool
}

// NewManager creates the output directory if needed
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, "failed to create output directory", err)
	}

	return &Manager{outputDir: outputDir, overwrite: overwrite}, nil
}

// Exists reports whether name is already present in the output directory
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(m.outputDir, name))
	return err == nil
}

// WriteArchive atomically writes the content produced by src to name and
// returns the final path.
func (m *Manager) WriteArchive(name string, src io.WriterTo) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", errs.New(errs.ErrorTypeStorage, fmt.Sprintf("invalid archive name %q", name))
	}

	target := filepath.Join(m.outputDir, name)
	if !m.overwrite && m.Exists(name) {
		return "", &errs.Error{
			Type:    errs.ErrorTypeStorage,
			Message: fmt.Sprintf("%s already exists and overwriting is disabled", target),
		}
	}

	tmp, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeStorage, "failed to create temporary file", err)
	}
	tempFile := tmp.Name()

	_, err = src.WriteTo(tmp)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write archive data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeStorage, "failed to close temporary file", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeStorage, "failed to set archive permissions", err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeStorage, "failed to rename temporary file", err)
	}

	return target, nil
}
