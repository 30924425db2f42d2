// Package manifest describes the contents of an archive as JSON.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"threadsdl/pkg/models"
)

// Filename is the archive entry name the manifest is stored under
const Filename = "manifest.json"

// Manifest records one run
type Manifest struct {
	RunID      string         `json:"run_id"`
	ProfileURL string         `json:"profile_url"`
	Username   string         `json:"username"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Candidates int            `json:"candidates"`
	Entries    []Entry        `json:"entries"`
	Skipped    []SkippedEntry `json:"skipped,omitempty"`
}

// Entry describes one archived media file
type Entry struct {
	Filename    string `json:"filename"`
	SourceURL   string `json:"source_url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
	SHA256      string `json:"sha256"`
}

// SkippedEntry describes a candidate that was not archived
type SkippedEntry struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
	Error     string `json:"error,omitempty"`
}

// New starts a manifest for target
func New(runID string, target models.ProfileTarget, startedAt time.Time) *Manifest {
	return &Manifest{
		RunID:      runID,
		ProfileURL: target.RawURL,
		Username:   target.Username,
		StartedAt:  startedAt.UTC(),
		Entries:    []Entry{},
	}
}

// AddResult records an archived file
func (m *Manifest) AddResult(r models.DownloadResult) {
	sum := sha256.Sum256(r.Data)
	m.Entries = append(m.Entries, Entry{
		Filename:    r.Filename,
		SourceURL:   r.SourceURL,
		ContentType: r.ContentType,
		Size:        len(r.Data),
		SHA256:      hex.EncodeToString(sum[:]),
	})
}

// AddSkipped records a skipped candidate
func (m *Manifest) AddSkipped(s models.Skipped) {
	entry := SkippedEntry{SourceURL: s.SourceURL, Reason: string(s.Reason)}
	if s.Err != nil {
		entry.Error = s.Err.Error()
	}
	m.Skipped = append(m.Skipped, entry)
}

// Finish stamps the completion time
func (m *Manifest) Finish(at time.Time) {
	m.FinishedAt = at.UTC()
}

// Marshal returns indented JSON
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Parse decodes a manifest read back from an archive
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}
