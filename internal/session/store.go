package session

import (
	"container/list"
	"maps"
	"sync"
	"time"
	"ytnotes/internal/domain"
)

// Session is what one chat has entered so far and what was generated for it.
type Session struct {
	Video     domain.Video
	Options   domain.Options
	Summaries map[domain.Length]string
}

// Store keeps per-chat sessions in memory. Sessions idle for longer than ttl
// are dropped, and the least recently used one is evicted once maxEntries is
// exceeded.
type Store struct {
	mu         sync.Mutex
	entries    map[int64]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
}

type entry struct {
	chatID    int64
	session   Session
	expiresAt time.Time
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	return &Store{
		entries:    make(map[int64]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns a copy of the chat session.
func (s *Store) Get(chatID int64, now time.Time) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(chatID, now)
	if !ok {
		return Session{}, false
	}

	return e.session.clone(), true
}

// SetVideo records the chat's video. Summaries are cleared when it changes.
func (s *Store) SetVideo(chatID int64, video domain.Video, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touchLocked(chatID, now)

	if e.session.Video.ID == video.ID {
		e.session.Video = video
		return false
	}

	e.session.Video = video
	clear(e.session.Summaries)

	return true
}

// SetOptions records the chat's options. Summaries are cleared when they
// change.
func (s *Store) SetOptions(chatID int64, options domain.Options, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touchLocked(chatID, now)

	if e.session.Options == options {
		return false
	}

	e.session.Options = options
	clear(e.session.Summaries)

	return true
}

// PutSummary stores a summary unless the session moved on to another video
// or other options while it was being generated.
func (s *Store) PutSummary(
	chatID int64,
	videoID string,
	options domain.Options,
	length domain.Length,
	text string,
	now time.Time,
) bool {
	if text == "" || !length.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(chatID, now)
	if !ok || e.session.Video.ID != videoID || e.session.Options != options {
		return false
	}

	e.session.Summaries[length] = text
	e.expiresAt = now.Add(s.ttl)

	return true
}

// Prune drops expired sessions and returns how many were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.evictExpiredLocked(now)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Store) lookupLocked(chatID int64, now time.Time) (*entry, bool) {
	elem, ok := s.entries[chatID]
	if !ok {
		return nil, false
	}

	e, ok := elem.Value.(*entry)
	if !ok {
		return nil, false
	}

	if now.After(e.expiresAt) {
		s.removeElement(elem)

		return nil, false
	}

	s.order.MoveToFront(elem)

	return e, true
}

func (s *Store) touchLocked(chatID int64, now time.Time) *entry {
	if e, ok := s.lookupLocked(chatID, now); ok {
		e.expiresAt = now.Add(s.ttl)
		return e
	}

	e := &entry{
		chatID: chatID,
		session: Session{
			Options:   domain.DefaultOptions(),
			Summaries: make(map[domain.Length]string, len(domain.Lengths())),
		},
		expiresAt: now.Add(s.ttl),
	}
	s.entries[chatID] = s.order.PushFront(e)

	s.enforceSizeLimitLocked()

	return e
}

func (s *Store) evictExpiredLocked(now time.Time) int {
	removed := 0

	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()

		if e, ok := elem.Value.(*entry); ok && now.After(e.expiresAt) {
			s.removeElement(elem)
			removed++
		}
		elem = prev
	}

	return removed
}

func (s *Store) enforceSizeLimitLocked() {
	for len(s.entries) > s.maxEntries {
		elem := s.order.Back()
		if elem == nil {
			return
		}
		s.removeElement(elem)
	}
}

func (s *Store) removeElement(elem *list.Element) {
	e, ok := elem.Value.(*entry)
	if !ok {
		return
	}

	delete(s.entries, e.chatID)
	s.order.Remove(elem)
}

func (s Session) clone() Session {
	s.Summaries = maps.Clone(s.Summaries)
	return s
}
