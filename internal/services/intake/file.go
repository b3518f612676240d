package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"debtplan/internal/models"
	"debtplan/internal/services/storage"
)

// FileStore is the part of storage.Storage the file repository needs
type FileStore interface {
	Path(elem ...string) string
	ReadJSON(path string, v interface{}) error
	WriteJSON(path string, v interface{}) error
	Glob(pattern string) ([]string, error)
	Remove(path string) error
}

const intakeDir = "intake"

// FileRepository keeps one JSON file per submission under data/intake
type FileRepository struct {
	store FileStore
	mu    sync.RWMutex
}

// NewFileRepository returns a repository backed by store
func NewFileRepository(store FileStore) (*FileRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("file intake repository needs a data store")
	}
	if err := os.MkdirAll(store.Path(intakeDir), 0755); err != nil {
		return nil, fmt.Errorf("create intake directory: %w", err)
	}
	return &FileRepository{store: store}, nil
}

func (r *FileRepository) path(id string) string {
	return r.store.Path(intakeDir, id+".json")
}

func (r *FileRepository) Save(_ context.Context, s *models.Submission) error {
	if _, err := uuid.Parse(s.ID); err != nil {
		return fmt.Errorf("submission id %q: %w", s.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.WriteJSON(r.path(s.ID), s)
}

func (r *FileRepository) Get(_ context.Context, id string) (*models.Submission, error) {
	// ids become file names, so only accept real UUIDs
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var s models.Submission
	if err := r.store.ReadJSON(r.path(id), &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *FileRepository) List(_ context.Context, limit int) ([]models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *FileRepository) DeleteBefore(_ context.Context, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadAll()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range all {
		if !s.CreatedAt.Before(t) {
			continue
		}
		if err := r.store.Remove(r.path(s.ID)); err != nil {
			return n, fmt.Errorf("remove %s: %w", s.ID, err)
		}
		n++
	}
	return n, nil
}

func (r *FileRepository) Close() error {
	return nil
}

// loadAll reads every submission file, skipping ones that fail to parse
func (r *FileRepository) loadAll() ([]models.Submission, error) {
	paths, err := r.store.Glob(filepath.Join(intakeDir, "*.json"))
	if err != nil {
		return nil, err
	}
	out := make([]models.Submission, 0, len(paths))
	for _, p := range paths {
		var s models.Submission
		if err := r.store.ReadJSON(p, &s); err != nil {
			if errors.Is(err, storage.ErrLocked) {
				return nil, err
			}
			log.Printf("Skipping intake file %s: %v", filepath.Base(p), err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
