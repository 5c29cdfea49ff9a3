package companies

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu        sync.RWMutex
	companies map[string]Company
	types     map[string][]DocumentType // companyID -> types
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		companies: make(map[string]Company),
		types:     make(map[string][]DocumentType),
	}
}

func (r *MemoryRepo) GetCompany(ctx context.Context, id string) (Company, error) {
	if err := ctx.Err(); err != nil {
		return Company{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	c.ReminderDays = append([]int(nil), c.ReminderDays...)
	return c, nil
}

func (r *MemoryRepo) CreateCompanyIfAbsent(ctx context.Context, c Company) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[c.ID]; ok {
		return false, nil
	}
	r.companies[c.ID] = c
	return true, nil
}

func (r *MemoryRepo) UpdateSettings(ctx context.Context, id string, driverLimit int, reminderDays []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return ErrNotFound
	}
	c.DriverLimit = driverLimit
	c.ReminderDays = append([]int(nil), reminderDays...)
	r.companies[id] = c
	return nil
}

func (r *MemoryRepo) ListTypes(ctx context.Context, companyID string) ([]DocumentType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]DocumentType, len(r.types[companyID]))
	copy(out, r.types[companyID])
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepo) GetType(ctx context.Context, companyID, id string) (DocumentType, error) {
	if err := ctx.Err(); err != nil {
		return DocumentType{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.types[companyID] {
		if t.ID == id {
			return t, nil
		}
	}
	return DocumentType{}, ErrNotFound
}

func (r *MemoryRepo) CreateType(ctx context.Context, t DocumentType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.types[t.CompanyID] {
		if strings.EqualFold(existing.Name, t.Name) {
			return ErrDuplicateName
		}
	}
	r.types[t.CompanyID] = append(r.types[t.CompanyID], t)
	return nil
}

func (r *MemoryRepo) UpdateType(ctx context.Context, t DocumentType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.types[t.CompanyID]
	idx := -1
	for i := range list {
		if list[i].ID == t.ID {
			idx = i
			continue
		}
		if strings.EqualFold(list[i].Name, t.Name) {
			return ErrDuplicateName
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	list[idx] = t
	return nil
}

func (r *MemoryRepo) DeleteType(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.types[companyID]
	for i := range list {
		if list[i].ID == id {
			r.types[companyID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
