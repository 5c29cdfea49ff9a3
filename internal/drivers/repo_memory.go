package drivers

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string][]Driver // companyID -> drivers
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Driver)}
}

func (r *MemoryRepo) CreateWithinLimit(ctx context.Context, d Driver, limit int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data[d.CompanyID]) >= limit {
		return false, nil
	}
	r.data[d.CompanyID] = append(r.data[d.CompanyID], d)
	return true, nil
}

func (r *MemoryRepo) Get(ctx context.Context, companyID, id string) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return Driver{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.data[companyID] {
		if d.ID == id {
			return d, nil
		}
	}
	return Driver{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, companyID string) ([]Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := make([]Driver, len(r.data[companyID]))
	copy(out, r.data[companyID])
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.data[companyID]
	for i := range list {
		if list[i].ID == id {
			r.data[companyID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
