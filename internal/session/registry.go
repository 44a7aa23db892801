package session

import (
	"context"
	"fmt"
	"sync"

	"study-tutor/internal/backend"
)

// Registry mirrors the backend file listing. It is only ever replaced
// wholesale by a successful list call, never patched locally.
type Registry struct {
	store FileStore

	mu          sync.Mutex
	files       []backend.FileRecord
	initialized bool
	refreshing  int
	started     uint64
	applied     uint64
	generation  uint64
	pending     string
	hasPending  bool
	token       uint64
	deleting    bool
}

func NewRegistry(store FileStore) *Registry {
	return &Registry{store: store}
}

// Init performs the first fetch. Once a fetch has succeeded it is a no-op.
func (r *Registry) Init(ctx context.Context) error {
	r.mu.Lock()
	done := r.initialized
	r.mu.Unlock()
	if done {
		return nil
	}
	return r.Refresh(ctx)
}

// Refresh re-reads the full listing. On failure the previous listing stays.
// When refreshes overlap, a response never overwrites one from a later request.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.refreshing++
	r.started++
	seq := r.started
	r.mu.Unlock()

	resp, err := r.store.ListFiles(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshing--
	if err != nil {
		return err
	}
	if seq > r.applied {
		r.applied = seq
		r.files = append([]backend.FileRecord{}, resp.Files...)
		r.initialized = true
		r.generation++
	}
	return nil
}

func (r *Registry) Files() []backend.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.FileRecord{}, r.files...)
}

// Snapshot returns the listing together with its generation. The generation
// changes every time a fetched listing replaces the previous one.
func (r *Registry) Snapshot() ([]backend.FileRecord, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.FileRecord{}, r.files...), r.generation
}

func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Registry) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing > 0
}

func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// RequestDelete is the first step of a delete: it records which title awaits
// confirmation and returns the token the confirmation must present. A newer
// request replaces the older one and invalidates its token.
func (r *Registry) RequestDelete(title string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.Title == title {
			r.token++
			r.pending = title
			r.hasPending = true
			return r.token, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFile, title)
}

func (r *Registry) PendingDelete() (string, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending, r.token, r.hasPending
}

// CancelDelete drops the pending confirmation if token still identifies it.
func (r *Registry) CancelDelete(token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasPending || r.token != token {
		return false
	}
	r.pending, r.hasPending = "", false
	return true
}

// ConfirmDelete deletes title if it is the pending confirmation identified by
// token, then re-fetches the listing. A matching confirmation is consumed
// whatever the outcome; a mismatched one leaves the pending request alone.
func (r *Registry) ConfirmDelete(ctx context.Context, title string, token uint64) error {
	r.mu.Lock()
	if r.deleting {
		r.mu.Unlock()
		return ErrBusy
	}
	if !r.hasPending || r.pending != title || r.token != token {
		r.mu.Unlock()
		return ErrNotConfirmed
	}
	r.pending, r.hasPending = "", false
	r.deleting = true
	r.mu.Unlock()

	err := r.store.DeleteFile(ctx, title)

	r.mu.Lock()
	r.deleting = false
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}
