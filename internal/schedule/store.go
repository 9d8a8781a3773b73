package schedule

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aatumaykin/pollbot/internal/logger"
)

// Store keeps the ordered schedule list of every chat. Positions are 1-based
// and renumber after a removal. Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	chats  map[int64][]Schedule
	file   *File
	logger *logger.Logger
}

// NewStore creates an empty store. A nil file keeps the store in memory only.
func NewStore(file *File, log *logger.Logger) *Store {
	return &Store{
		chats:  make(map[int64][]Schedule),
		file:   file,
		logger: log,
	}
}

// Add validates s, assigns it an ID when it has none and appends it to the
// chat's list. It returns the 1-based position of the new entry. An ID
// already used by any chat is rejected.
func (st *Store) Add(chatID int64, s Schedule) (int, error) {
	s.ChatID = chatID
	s.Name = strings.TrimSpace(s.Name)
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if s.ID == "" {
		s.ID = newID()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.hasIDLocked(s.ID) {
		return 0, &ValidationError{Field: "id", Value: s.ID, Reason: "id is already in use"}
	}

	st.chats[chatID] = append(st.chats[chatID], s)
	position := len(st.chats[chatID])

	st.logger.Info("schedule added",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "schedule_id", Value: s.ID},
		logger.Field{Key: "position", Value: position})
	return position, nil
}

// List returns a copy of the chat's schedules in insertion order.
func (st *Store) List(chatID int64) []Schedule {
	st.mu.RLock()
	defer st.mu.RUnlock()

	list := st.chats[chatID]
	out := make([]Schedule, len(list))
	copy(out, list)
	return out
}

// Get returns the schedule at a 1-based position.
func (st *Store) Get(chatID int64, position int) (Schedule, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	list := st.chats[chatID]
	if position < 1 || position > len(list) {
		return Schedule{}, fmt.Errorf("%w: position %d, chat has %d", ErrOutOfRange, position, len(list))
	}
	return list[position-1], nil
}

// Find returns the schedule with the given ID.
func (st *Store) Find(id string) (Schedule, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, list := range st.chats {
		for _, s := range list {
			if s.ID == id {
				return s, nil
			}
		}
	}
	return Schedule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (st *Store) hasIDLocked(id string) bool {
	for _, list := range st.chats {
		for _, s := range list {
			if s.ID == id {
				return true
			}
		}
	}
	return false
}

// Remove deletes the schedule at a 1-based position. Later entries shift down
// by one. The chat key is dropped once its list is empty.
func (st *Store) Remove(chatID int64, position int) (Schedule, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	list := st.chats[chatID]
	if position < 1 || position > len(list) {
		return Schedule{}, fmt.Errorf("%w: position %d, chat has %d", ErrOutOfRange, position, len(list))
	}

	removed := list[position-1]
	next := make([]Schedule, 0, len(list)-1)
	next = append(next, list[:position-1]...)
	next = append(next, list[position:]...)

	if len(next) == 0 {
		delete(st.chats, chatID)
	} else {
		st.chats[chatID] = next
	}

	st.logger.Info("schedule removed",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "schedule_id", Value: removed.ID},
		logger.Field{Key: "position", Value: position})
	return removed, nil
}

// RemoveAll clears the chat's list and returns how many entries were removed.
// Clearing an empty chat is a no-op.
func (st *Store) RemoveAll(chatID int64) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := len(st.chats[chatID])
	delete(st.chats, chatID)
	if n > 0 {
		st.logger.Info("schedules cleared",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "count", Value: n})
	}
	return n
}

// Chats returns the IDs of chats that have at least one schedule, ascending.
func (st *Store) Chats() []int64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sortedChats()
}

// All returns every schedule: chats ascending, each chat in list order.
func (st *Store) All() []Schedule {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []Schedule
	for _, chatID := range st.sortedChats() {
		out = append(out, st.chats[chatID]...)
	}
	return out
}

// Count returns the total number of schedules.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	n := 0
	for _, list := range st.chats {
		n += len(list)
	}
	return n
}

func (st *Store) sortedChats() []int64 {
	ids := make([]int64, 0, len(st.chats))
	for id := range st.chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Persist rewrites the schedule file with the current state.
func (st *Store) Persist() error {
	if st.file == nil {
		return nil
	}

	st.mu.RLock()
	snapshot := make(map[int64][]Schedule, len(st.chats))
	for chatID, list := range st.chats {
		snapshot[chatID] = append([]Schedule(nil), list...)
	}
	st.mu.RUnlock()

	if err := st.file.Write(snapshot); err != nil {
		st.logger.Error("failed to persist schedules", err,
			logger.Field{Key: "file", Value: st.file.Path()})
		return err
	}
	return nil
}

// Load replaces the in-memory state with the file contents. A missing file
// yields an empty store. An unreadable or corrupt file also yields an empty
// store; the error is logged and returned for information only.
func (st *Store) Load() error {
	if st.file == nil {
		return nil
	}

	chats, err := st.file.Read()
	if err != nil {
		st.logger.Error("starting with empty schedule store", err,
			logger.Field{Key: "file", Value: st.file.Path()})
		chats = map[int64][]Schedule{}
	}

	st.mu.Lock()
	st.chats = chats
	st.mu.Unlock()

	st.logger.Info("schedules loaded",
		logger.Field{Key: "file", Value: st.file.Path()},
		logger.Field{Key: "chats", Value: len(chats)})
	return err
}
