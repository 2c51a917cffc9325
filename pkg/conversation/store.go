package conversation

import (
	"sort"
	"sync"
	"time"
)

const maxTurns = 20

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Turn is one utterance in a thread.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Store keeps per-thread conversation history in memory. Threads are capped
// at maxTurns, oldest dropped first. Appends from concurrent requests on the
// same thread are serialized by the lock; between requests, last writer
// wins.
type Store struct {
	mu      sync.RWMutex
	threads map[string][]Turn
}

func NewStore() *Store {
	return &Store{threads: make(map[string][]Turn)}
}

func (s *Store) Append(threadID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.threads[threadID], Turn{Role: role, Content: content, At: time.Now()})
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	s.threads[threadID] = turns
}

// History returns a copy of the thread's turns, oldest first.
func (s *Store) History(threadID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.threads[threadID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes a thread and reports whether it existed.
func (s *Store) Clear(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.threads[threadID]
	delete(s.threads, threadID)
	return ok
}

// Threads lists the identifiers of all live threads, sorted.
func (s *Store) Threads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
