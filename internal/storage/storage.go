package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nordgren/eventscout/internal/event"
)

const (
	candidatesFile = "candidates.json"
	trackerFile    = "dedup_tracker.json"
)

// Storage handles persistence of the candidate-events file and resolves
// paths inside the data directory.
type Storage struct {
	dataDir string
}

// candidatesDoc is the on-disk envelope for the candidate-events file.
type candidatesDoc struct {
	CrawledAt  string             `json:"crawled_at"`
	Candidates []*event.Candidate `json:"candidates"`
}

// New creates a new Storage instance rooted at dataDir, creating the
// directory if needed.
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

// TrackerPath returns the path of the dedup tracker file.
func (s *Storage) TrackerPath() string {
	return filepath.Join(s.dataDir, trackerFile)
}

// CandidatesPath returns the path of the candidate-events file.
func (s *Storage) CandidatesPath() string {
	return filepath.Join(s.dataDir, candidatesFile)
}

// SaveCandidates writes the candidate-events file. The write is atomic so
// a crash mid-write leaves the previous crawl's output intact.
func (s *Storage) SaveCandidates(candidates []*event.Candidate) error {
	doc := candidatesDoc{
		CrawledAt:  time.Now().UTC().Format(time.RFC3339),
		Candidates: candidates,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}

	path := s.CandidatesPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing candidates: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing candidates file: %w", err)
	}

	return nil
}

// LoadCandidates reads the candidate-events file. A missing file yields an
// empty slice, not an error: a sync before the first crawl is a no-op.
func (s *Storage) LoadCandidates() ([]*event.Candidate, error) {
	data, err := os.ReadFile(s.CandidatesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading candidates: %w", err)
	}

	var doc candidatesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing candidates: %w", err)
	}

	return doc.Candidates, nil
}
