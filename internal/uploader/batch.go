package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"compliance-backend/internal/documents"
)

// State is the per-file position in a batch.
type State string

const (
	StatePending   State = "pending"
	StateUploading State = "uploading"
	StateUploaded  State = "uploaded"
	StateError     State = "error"
)

var (
	ErrUnknownFile = errors.New("file not in batch")
	ErrNotPending  = errors.New("file is no longer pending")
	ErrNotFailed   = errors.New("only failed files can be retried")
)

// API is the server side of the protocol: grants and record creation.
type API interface {
	RequestUploadGrants(ctx context.Context, driverID string, files []documents.FileSpec) ([]documents.UploadGrant, error)
	CreateDocument(ctx context.Context, driverID string, in documents.RecordInput) (documents.DocumentResponse, error)
}

// File is one local file queued for upload. Open is called once per attempt.
type File struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Status is a snapshot of one file.
type Status struct {
	ID         string
	Name       string
	State      State
	Progress   int
	DocumentID string
	Err        error
}

type entry struct {
	file       File
	state      State
	progress   int
	documentID string
	err        error
}

// Batch uploads files for one driver. Files are independent: one failing
// never cancels or blocks another.
type Batch struct {
	API         API
	Uploader    *Uploader
	DriverID    string
	Concurrency int
	// OnChange, when set, is called after every state or progress change.
	OnChange func(Status)

	mu      sync.Mutex
	order   []string
	entries map[string]*entry
}

// NewBatch constructs a Batch.
func NewBatch(api API, up *Uploader, driverID string) *Batch {
	return &Batch{
		API:         api,
		Uploader:    up,
		DriverID:    driverID,
		Concurrency: 4,
		entries:     make(map[string]*entry),
	}
}

// Add queues files as pending. Duplicate IDs replace the earlier entry.
func (b *Batch) Add(files ...File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range files {
		if _, ok := b.entries[f.ID]; !ok {
			b.order = append(b.order, f.ID)
		}
		b.entries[f.ID] = &entry{file: f, state: StatePending}
	}
}

// Remove drops a file that has not started uploading.
func (b *Batch) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return ErrUnknownFile
	}
	if e.state != StatePending {
		return ErrNotPending
	}
	delete(b.entries, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot returns every file's status in insertion order.
func (b *Batch) Snapshot() []Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Status, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.statusLocked(b.entries[id]))
	}
	return out
}

// Run uploads every pending file. Grants for all of them are requested in
// one call; uploads and record creation then run concurrently.
func (b *Batch) Run(ctx context.Context) []Status {
	pending := b.claimPending()
	if len(pending) == 0 {
		return b.Snapshot()
	}

	specs := make([]documents.FileSpec, 0, len(pending))
	for _, e := range pending {
		specs = append(specs, documents.FileSpec{FileName: e.file.Name, ContentType: e.file.ContentType, Size: e.file.Size})
	}
	grants, err := b.API.RequestUploadGrants(ctx, b.DriverID, specs)
	if err == nil && len(grants) != len(pending) {
		err = fmt.Errorf("expected %d grants, got %d", len(pending), len(grants))
	}
	if err != nil {
		for _, e := range pending {
			b.fail(e, fmt.Errorf("request grant: %w", err))
		}
		return b.Snapshot()
	}

	var g errgroup.Group
	if b.Concurrency > 0 {
		g.SetLimit(b.Concurrency)
	}
	for i, e := range pending {
		e, grant := e, grants[i]
		g.Go(func() error {
			b.transfer(ctx, e, grant)
			return nil
		})
	}
	_ = g.Wait()
	return b.Snapshot()
}

// Retry restarts a failed file from the grant request.
func (b *Batch) Retry(ctx context.Context, id string) (Status, error) {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return Status{}, ErrUnknownFile
	}
	if e.state != StateError {
		b.mu.Unlock()
		return Status{}, ErrNotFailed
	}
	e.state = StateUploading
	e.progress = 0
	e.err = nil
	b.mu.Unlock()
	b.notify(e)

	grants, err := b.API.RequestUploadGrants(ctx, b.DriverID, []documents.FileSpec{
		{FileName: e.file.Name, ContentType: e.file.ContentType, Size: e.file.Size},
	})
	if err == nil && len(grants) != 1 {
		err = fmt.Errorf("expected 1 grant, got %d", len(grants))
	}
	if err != nil {
		b.fail(e, fmt.Errorf("request grant: %w", err))
	} else {
		b.transfer(ctx, e, grants[0])
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked(e), nil
}

func (b *Batch) claimPending() []*entry {
	b.mu.Lock()
	var out []*entry
	for _, id := range b.order {
		e := b.entries[id]
		if e.state == StatePending {
			e.state = StateUploading
			out = append(out, e)
		}
	}
	b.mu.Unlock()
	for _, e := range out {
		b.notify(e)
	}
	return out
}

// transfer runs phases two and three for one file. A record is created only
// after the object store acknowledged the bytes.
func (b *Batch) transfer(ctx context.Context, e *entry, grant documents.UploadGrant) {
	body, err := e.file.Open()
	if err != nil {
		b.fail(e, fmt.Errorf("open %s: %w", e.file.Name, err))
		return
	}
	defer body.Close()

	err = b.Uploader.PerformUpload(ctx, grant, body, e.file.Size, e.file.ContentType, func(pct int) {
		b.mu.Lock()
		e.progress = pct
		b.mu.Unlock()
		b.notify(e)
	})
	if err != nil {
		b.fail(e, err)
		return
	}

	doc, err := b.API.CreateDocument(ctx, b.DriverID, documents.RecordInput{
		Key:         grant.Key,
		FileName:    e.file.Name,
		ContentType: e.file.ContentType,
		Size:        e.file.Size,
	})
	if err != nil {
		b.fail(e, fmt.Errorf("create record: %w", err))
		return
	}

	b.mu.Lock()
	e.state = StateUploaded
	e.progress = 100
	e.documentID = doc.ID
	b.mu.Unlock()
	b.notify(e)
}

func (b *Batch) fail(e *entry, err error) {
	b.mu.Lock()
	e.state = StateError
	e.err = err
	b.mu.Unlock()
	b.notify(e)
}

func (b *Batch) notify(e *entry) {
	if b.OnChange == nil {
		return
	}
	b.mu.Lock()
	st := b.statusLocked(e)
	b.mu.Unlock()
	b.OnChange(st)
}

func (b *Batch) statusLocked(e *entry) Status {
	return Status{
		ID:         e.file.ID,
		Name:       e.file.Name,
		State:      e.state,
		Progress:   e.progress,
		DocumentID: e.documentID,
		Err:        e.err,
	}
}
