// Package seed fills an empty catalog with sample entries.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"doccatalog/internal/intake"
	"doccatalog/internal/model"
	"doccatalog/internal/repository"
)

//go:embed samples.yaml
var embeddedSamples []byte

type sampleFile struct {
	Documents []sample `yaml:"documents"`
}

type sample struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Size        int64    `yaml:"size"`
	Subject     string   `yaml:"subject"`
	Keywords    []string `yaml:"keywords"`
	Description string   `yaml:"description"`
	UploadDate  string   `yaml:"uploadDate"`
	URL         string   `yaml:"url"`
}

// LoadSamples reads samples from path, or the built-in set when path is empty.
func LoadSamples(path string) ([]model.Document, error) {
	if path == "" {
		return ParseSamples(embeddedSamples)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSamples(data)
}

// ParseSamples decodes a YAML sample list. Ids must be present and unique, and every
// sample must pass intake.NormalizeEntry.
func ParseSamples(data []byte) ([]model.Document, error) {
	var f sampleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Documents))
	docs := make([]model.Document, 0, len(f.Documents))
	for i, s := range f.Documents {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("sample %d: id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("sample %d: duplicate id %s", i, s.ID)
		}
		seen[s.ID] = struct{}{}

		uploaded, err := model.ParseTime(s.UploadDate)
		if err != nil {
			return nil, fmt.Errorf("sample %s: uploadDate: %w", s.ID, err)
		}
		doc := model.Document{
			ID:          s.ID,
			Name:        s.Name,
			Type:        s.Type,
			Size:        s.Size,
			Subject:     s.Subject,
			Keywords:    s.Keywords,
			Description: s.Description,
			UploadDate:  uploaded,
			URL:         s.URL,
		}
		if err := intake.NormalizeEntry(&doc); err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Seeder inserts the samples into an empty store. Concurrent callers are serialized,
// and samples that are already stored are skipped, so samples never appear twice.
type Seeder struct {
	repo    repository.DocumentRepository
	samples []model.Document
	log     *zap.Logger

	mu sync.Mutex
}

func New(repo repository.DocumentRepository, samples []model.Document, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{repo: repo, samples: samples, log: log.With(zap.String("component", "seeder"))}
}

// SeedIfEmpty inserts the samples when the store holds no entries and reports how many
// were inserted. A non-empty store is left untouched.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for i := range s.samples {
		doc := s.samples[i]
		if err := s.repo.Insert(ctx, &doc); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				// another process seeded first
				continue
			}
			s.log.Error("seed_failed", zap.String("id", doc.ID), zap.Int("inserted", inserted), zap.Error(err))
			return inserted, fmt.Errorf("seed %s: %w", doc.ID, err)
		}
		inserted++
	}

	s.log.Info("seed_success", zap.Int("inserted", inserted), zap.Int("samples", len(s.samples)))
	return inserted, nil
}
