package review

import (
	"sync"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/google/uuid"
)

// Session is one browser's review of one upload.
type Session struct {
	ID        string
	Filename  string
	Notes     string
	Quiz      study.Quiz
	Answers   AnswerState
	Outcomes  []study.Outcome
	ExpiresAt time.Time
}

// Store keeps review sessions in memory until they expire.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create stores a fresh session for a completed upload with every answer
// unanswered.
func (s *Store) Create(filename string, notes string, quiz study.Quiz) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	session := &Session{
		ID:        uuid.NewString(),
		Filename:  filename,
		Notes:     notes,
		Quiz:      quiz,
		Answers:   NewAnswerState(len(quiz.Questions)),
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions[session.ID] = session
	return copySession(session)
}

// Get returns a copy of the session so callers can mutate it and Save it back.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return copySession(session), true
}

// Save replaces a live session and extends its lifetime.
func (s *Store) Save(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return false
	}
	stored := copySession(session)
	stored.ExpiresAt = s.now().Add(s.ttl)
	s.sessions[session.ID] = stored
	return true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictLocked() {
	now := s.now()
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

func copySession(session *Session) *Session {
	out := *session
	out.Answers = AnswerState{selections: append([]int(nil), session.Answers.selections...)}
	out.Outcomes = append([]study.Outcome(nil), session.Outcomes...)
	return &out
}
