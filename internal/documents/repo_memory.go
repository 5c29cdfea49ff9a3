package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentID -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, companyID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.CompanyID != companyID {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// ListByDriver returns the driver's documents, oldest first.
func (r *MemoryRepo) ListByDriver(ctx context.Context, companyID, driverID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.CompanyID == companyID && doc.DriverID == driverID {
			out = append(out, clone(doc))
		}
	}
	r.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[doc.ID]
	if !ok || existing.CompanyID != doc.CompanyID {
		return ErrNotFound
	}
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) DeleteByDriver(ctx context.Context, companyID, driverID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, doc := range r.data {
		if doc.CompanyID == companyID && doc.DriverID == driverID {
			delete(r.data, id)
		}
	}
	return nil
}

func (r *MemoryRepo) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.ExpiryDate != nil && !doc.ExpiryDate.After(cutoff) {
			out = append(out, clone(doc))
		}
	}
	r.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

func sortByCreated(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}

func clone(doc Document) Document {
	if doc.Fields != nil {
		fields := make(map[string]string, len(doc.Fields))
		for k, v := range doc.Fields {
			fields[k] = v
		}
		doc.Fields = fields
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
