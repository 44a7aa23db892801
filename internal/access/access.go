// Package access decides which Telegram users may drive the tutoring backend
// and keeps the queue of users waiting for the admin's decision.
package access

import (
	"errors"
	"sort"
	"sync"
)

var ErrNotPending = errors.New("user has no pending request")

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

// Service holds the allowlist and the pending requests. Either repository may
// be nil, in which case that list lives in memory only.
type Service struct {
	allowRepo   Repository
	pendingRepo Repository

	mu      sync.RWMutex
	allowed map[int64]User
	pending map[int64]User
}

func New(allowRepo, pendingRepo Repository, initial []int64) (*Service, error) {
	s := &Service{
		allowRepo:   allowRepo,
		pendingRepo: pendingRepo,
		allowed:     make(map[int64]User),
		pending:     make(map[int64]User),
	}
	if allowRepo != nil {
		users, err := allowRepo.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			s.allowed[u.ID] = u
		}
	}
	// env IDs come without usernames
	for _, id := range initial {
		if _, ok := s.allowed[id]; !ok {
			s.allowed[id] = User{ID: id}
		}
	}
	if pendingRepo != nil {
		users, err := pendingRepo.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, ok := s.allowed[u.ID]; !ok {
				s.pending[u.ID] = u
			}
		}
	}
	return s, nil
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowed[userID]
	return ok
}

func (s *Service) Allow(user User) error {
	s.mu.Lock()
	s.allowed[user.ID] = user
	s.mu.Unlock()
	if s.allowRepo != nil {
		return s.allowRepo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.allowed, userID)
	s.mu.Unlock()
	if s.allowRepo != nil {
		return s.allowRepo.Remove(userID)
	}
	return nil
}

func (s *Service) Allowed() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.allowed)
}

// Request queues user for approval. It reports false when the user was
// already waiting, so the admin is notified only once.
func (s *Service) Request(user User) (bool, error) {
	s.mu.Lock()
	_, exists := s.pending[user.ID]
	s.pending[user.ID] = user
	s.mu.Unlock()
	if s.pendingRepo != nil {
		if err := s.pendingRepo.Upsert(user); err != nil {
			return !exists, err
		}
	}
	return !exists, nil
}

func (s *Service) Pending() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.pending)
}

// Approve moves a pending user onto the allowlist.
func (s *Service) Approve(userID int64) (User, error) {
	u, err := s.takePending(userID)
	if err != nil {
		return User{}, err
	}
	return u, s.Allow(u)
}

// Deny drops a pending request.
func (s *Service) Deny(userID int64) (User, error) {
	return s.takePending(userID)
}

func (s *Service) takePending(userID int64) (User, error) {
	s.mu.Lock()
	u, ok := s.pending[userID]
	delete(s.pending, userID)
	s.mu.Unlock()
	if !ok {
		return User{}, ErrNotPending
	}
	if s.pendingRepo != nil {
		if err := s.pendingRepo.Remove(userID); err != nil {
			return u, err
		}
	}
	return u, nil
}

func sorted(m map[int64]User) []User {
	out := make([]User, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
