package conversation

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Store - шардированное хранилище сессий с блокировкой на пользователя.
// Запись удаляется, когда сессия вернулась в Idle и её никто не держит.
type Store struct {
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	refs    int
	session *Session
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// acquire возвращает запись пользователя под её мьютексом.
// Порядок блокировок: entry.mu, затем shard.mu (только в release).
func (s *Store) acquire(userID string) *entry {
	sh := s.shardFor(userID)

	sh.mu.Lock()
	e, ok := sh.entries[userID]
	if !ok {
		e = &entry{session: &Session{UserID: userID}}
		sh.entries[userID] = e
	}
	e.refs++
	sh.mu.Unlock()

	e.mu.Lock()
	return e
}

func (s *Store) release(userID string, e *entry) {
	sh := s.shardFor(userID)

	sh.mu.Lock()
	e.refs--
	if e.refs == 0 && !e.session.Step.InFlow() {
		delete(sh.entries, userID)
	}
	sh.mu.Unlock()

	e.mu.Unlock()
}

// Snapshot возвращает копию сессии пользователя.
func (s *Store) Snapshot(userID string) (Session, bool) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	e, ok := sh.entries[userID]
	if ok {
		e.refs++
	}
	sh.mu.Unlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	snapshot := *e.session
	snapshot.Draft = e.session.Draft.clone()
	s.release(userID, e)
	return snapshot, true
}

// Len возвращает число пользователей с записью в хранилище.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}
