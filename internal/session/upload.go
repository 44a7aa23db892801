package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"study-tutor/internal/backend"
)

// Selection is the local, not yet submitted upload input.
type Selection struct {
	File *backend.UploadFile
	Link string
}

func (s Selection) Empty() bool {
	return s.File == nil && strings.TrimSpace(s.Link) == ""
}

type Upload struct {
	store    FileStore
	registry *Registry

	mu        sync.Mutex
	file      *backend.UploadFile
	link      string
	uploading bool
}

func NewUpload(store FileStore, registry *Registry) *Upload {
	return &Upload{store: store, registry: registry}
}

func (u *Upload) SelectFile(name string, content []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.file = &backend.UploadFile{Name: name, Content: append([]byte{}, content...)}
}

func (u *Upload) ClearFile() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.file = nil
}

func (u *Upload) SetLink(link string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.link = link
}

func (u *Upload) Selection() Selection {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Selection{File: u.file, Link: u.link}
}

func (u *Upload) Uploading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploading
}

// Submit sends the current selection in one request. On success the selection
// is cleared and the registry re-fetched; on failure the selection is kept.
func (u *Upload) Submit(ctx context.Context) error {
	u.mu.Lock()
	if u.uploading {
		u.mu.Unlock()
		return ErrBusy
	}
	sel := Selection{File: u.file, Link: u.link}
	if sel.Empty() {
		u.mu.Unlock()
		return ErrNothingSelected
	}
	u.uploading = true
	u.mu.Unlock()

	req := backend.UploadRequest{File: sel.File}
	if strings.TrimSpace(sel.Link) != "" {
		req.Link = sel.Link
	}
	err := u.store.Upload(ctx, req)

	u.mu.Lock()
	u.uploading = false
	if err != nil {
		u.mu.Unlock()
		return err
	}
	// Keep anything selected while the request was running.
	if u.file == sel.File {
		u.file = nil
	}
	if u.link == sel.Link {
		u.link = ""
	}
	u.mu.Unlock()

	if u.registry == nil {
		return nil
	}
	if err := u.registry.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}
