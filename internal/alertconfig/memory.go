package alertconfig

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"telinsights/pkg/errors"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]AlertConfiguration
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		configs: make(map[string]AlertConfiguration),
		now:     time.Now,
	}
}

func (r *MemoryRepository) ListActive(ctx context.Context, criteriaType string) ([]AlertConfiguration, error) {
	return r.list(ctx, func(c AlertConfiguration) bool {
		return c.IsActive && (criteriaType == "" || c.Criteria.Type == criteriaType)
	}, false)
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, includeInactive bool) ([]AlertConfiguration, error) {
	return r.list(ctx, func(c AlertConfiguration) bool {
		return c.UserID == userID && (includeInactive || c.IsActive)
	}, true)
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*AlertConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[id]
	if !ok {
		return nil, errors.ErrNotFound.WithDetail("id", id)
	}
	out := copyConfig(cfg)
	return &out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, cfg *AlertConfiguration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.configs {
		if existing.UserID == cfg.UserID && existing.Name == cfg.Name {
			return errors.ErrConflict.WithMessage("alert '" + cfg.Name + "' already exists for user " + cfg.UserID)
		}
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	now := r.now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	r.configs[cfg.ID] = copyConfig(*cfg)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, cfg *AlertConfiguration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.configs[cfg.ID]
	if !ok {
		return errors.ErrNotFound.WithDetail("id", cfg.ID)
	}
	for id, other := range r.configs {
		if id != cfg.ID && other.UserID == existing.UserID && other.Name == cfg.Name {
			return errors.ErrConflict.WithMessage("alert '" + cfg.Name + "' already exists for user " + existing.UserID)
		}
	}

	cfg.UserID = existing.UserID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = r.now().UTC()
	r.configs[cfg.ID] = copyConfig(*cfg)
	return nil
}

func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[id]
	if !ok {
		return errors.ErrNotFound.WithDetail("id", id)
	}
	cfg.IsActive = active
	cfg.UpdatedAt = r.now().UTC()
	r.configs[id] = cfg
	return nil
}

func (r *MemoryRepository) list(ctx context.Context, keep func(AlertConfiguration) bool, newestFirst bool) ([]AlertConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var out []AlertConfiguration
	for _, cfg := range r.configs {
		if keep(cfg) {
			out = append(out, copyConfig(cfg))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if newestFirst {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyConfig(cfg AlertConfiguration) AlertConfiguration {
	out := cfg
	out.Criteria.Keywords = append([]string(nil), cfg.Criteria.Keywords...)
	out.Criteria.Topics = append([]string(nil), cfg.Criteria.Topics...)
	return out
}
