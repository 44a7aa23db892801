package session

import "sync"

// Session bundles one user's independent session components.
type Session struct {
	Chat   *Chat
	Quiz   *Quiz
	Study  *Study
	Files  *Registry
	Upload *Upload
}

func New(gw Gateway) *Session {
	reg := NewRegistry(gw)
	return &Session{
		Chat:   NewChat(gw),
		Quiz:   NewQuiz(gw),
		Study:  NewStudy(gw),
		Files:  reg,
		Upload: NewUpload(gw, reg),
	}
}

// Store keeps one Session per user, created on first use.
type Store struct {
	gw Gateway

	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore(gw Gateway) *Store {
	return &Store{gw: gw, sessions: make(map[int64]*Session)}
}

func (s *Store) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = New(s.gw)
		s.sessions[userID] = sess
	}
	return sess
}

// Reset drops all state of one user; the next Get starts fresh.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
