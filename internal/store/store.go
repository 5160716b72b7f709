// Package store owns the in-memory conversation collection and its
// dual-backend persistence. It is the single writer of conversation state:
// callers get deep copies and submit mutations through the methods here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wzyfromhust/textsage/internal/domain"
)

const (
	kvKeyBackup   = "textsage:conversations"
	kvKeyFilePath = "textsage:conversations_path"
)

// DefaultHistoryLimit caps how many conversations are retained.
const DefaultHistoryLimit = 50

// Options configures a Store.
type Options struct {
	// FilePath is where the primary JSON file is written. The resolved path
	// is recorded in the key-value store so later loads find it again.
	FilePath string

	// HistoryLimit is the maximum number of retained conversations.
	// Zero means DefaultHistoryLimit.
	HistoryLimit int
}

// Store manages the ordered conversation collection and the active
// conversation pointer. All methods are safe for concurrent use; the mutex
// is the single-writer primitive guarding the collection.
type Store struct {
	mu            sync.Mutex
	conversations []domain.Conversation
	activeID      uuid.UUID

	files        domain.FileStore
	kv           domain.KeyValueStore
	filePath     string
	historyLimit int
}

// New creates a Store and loads persisted state: the primary file first
// (using the path recorded in the key-value store), then the key-value
// backup blob, then a fresh collection. A read failure at any stage is
// treated as "no data", never as fatal. The store always holds at least one
// conversation once New returns, and that conversation is active.
func New(ctx context.Context, files domain.FileStore, kv domain.KeyValueStore, opts Options) *Store {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	path := opts.FilePath
	if path == "" {
		path = "conversations.json"
	}

	s := &Store{
		files:        files,
		kv:           kv,
		filePath:     path,
		historyLimit: limit,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	s.conversations = s.loadConversations(ctx)

	if len(s.conversations) == 0 {
		s.conversations = []domain.Conversation{domain.NewConversation()}
	}
	s.activeID = s.conversations[0].ID

	// Write back immediately so a fresh collection survives a crash before
	// the first mutation.
	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist conversations after load")
	}
}

func (s *Store) loadConversations(ctx context.Context) []domain.Conversation {
	// Candidate file paths: the path recorded on the last save, then the
	// configured one.
	paths := []string{}
	if recorded, err := s.kv.Get(ctx, kvKeyFilePath); err != nil {
		log.Warn().Err(err).Msg("failed to read recorded conversations path")
	} else if len(recorded) > 0 && string(recorded) != s.filePath {
		paths = append(paths, string(recorded))
	}
	paths = append(paths, s.filePath)

	for _, path := range paths {
		data, err := s.files.Read(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("no conversations file")
			continue
		}
		var conversations []domain.Conversation
		if err := json.Unmarshal(data, &conversations); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("conversations file is corrupt, trying fallback")
			continue
		}
		log.Info().Int("count", len(conversations)).Str("path", path).Msg("loaded conversations from file")
		return conversations
	}

	// Fall back to the key-value backup blob.
	data, err := s.kv.Get(ctx, kvKeyBackup)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read conversations backup")
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var conversations []domain.Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		log.Warn().Err(err).Msg("conversations backup is corrupt, starting fresh")
		return nil
	}
	log.Info().Int("count", len(conversations)).Msg("loaded conversations from key-value backup")
	return conversations
}

// CreateConversation inserts a new empty conversation at the head of the
// list, makes it active, persists, and returns its id. It never fails.
func (s *Store) CreateConversation(ctx context.Context) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.createLocked()
	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist after creating conversation")
	}
	return id
}

func (s *Store) createLocked() uuid.UUID {
	conv := domain.NewConversation()
	s.conversations = append([]domain.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	return conv.ID
}

// SwitchActive points the active conversation at id. The id is not
// validated: an unknown id simply makes Current report no conversation
// until the pointer is moved again.
func (s *Store) SwitchActive(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// Current returns a copy of the active conversation, or false if the active
// pointer matches nothing.
func (s *Store) Current() (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.activeID)
	if idx < 0 {
		return domain.Conversation{}, false
	}
	return s.conversations[idx].Clone(), true
}

// Get returns a copy of the conversation with id, or false if no such
// conversation exists. Unlike Current it does not depend on the active
// pointer, so in-flight requests can read the conversation they started
// with even after the pointer moves.
func (s *Store) Get(id uuid.UUID) (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return domain.Conversation{}, false
	}
	return s.conversations[idx].Clone(), true
}

// Conversations returns a copy of the full collection, most recently active
// first.
func (s *Store) Conversations() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// AddMessage appends msg to the active conversation, creating one first if
// nothing is active, so the operation always succeeds. The first user
// message in a conversation sets its title; every append refreshes the
// conversation timestamp and moves it to the head of the list.
func (s *Store) AddMessage(ctx context.Context, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.activeID)
	if idx < 0 {
		s.createLocked()
		idx = 0
	}

	conv := &s.conversations[idx]
	if msg.IsUser && !conv.HasUserMessage() {
		conv.Title = domain.DeriveTitle(msg.Content)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.Timestamp = time.Now()

	if idx != 0 {
		moved := s.conversations[idx]
		s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
		s.conversations = append([]domain.Conversation{moved}, s.conversations...)
	}

	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist after adding message")
	}
}

// UpdateMessage mutates a message's content and status in place. It is
// deliberately forgiving: a conversation or message that has been deleted
// since the request started is logged and ignored, so late completion
// callbacks never fail. Only terminal statuses trigger a persist; streaming
// deltas stay in memory until the response settles.
func (s *Store) UpdateMessage(ctx context.Context, conversationID, messageID uuid.UUID, content string, status domain.MessageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(conversationID)
	if idx < 0 {
		log.Debug().Str("conversation_id", conversationID.String()).Msg("update for missing conversation ignored")
		return
	}

	conv := &s.conversations[idx]
	for i := range conv.Messages {
		if conv.Messages[i].ID != messageID {
			continue
		}
		conv.Messages[i].Content = content
		conv.Messages[i].Status = status

		if status == domain.StatusCompleted || status == domain.StatusError {
			if err := s.persistLocked(ctx); err != nil {
				log.Error().Err(err).Msg("failed to persist after updating message")
			}
		}
		return
	}
	log.Debug().Str("message_id", messageID.String()).Msg("update for missing message ignored")
}

// DeleteConversation removes the conversation with id. If it was active,
// the head of the remaining list becomes active, or a fresh conversation is
// created when the list is empty.
func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx >= 0 {
		s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	}

	if id == s.activeID {
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		} else {
			s.createLocked()
		}
	}

	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist after deleting conversation")
	}
}

// ClearActive empties the active conversation's messages in place, leaving
// its id and title untouched. A missing active conversation is a logged
// no-op.
func (s *Store) ClearActive(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(s.activeID)
	if idx < 0 {
		log.Warn().Msg("clear requested with no active conversation")
		return
	}

	s.conversations[idx].Messages = []domain.Message{}

	if err := s.persistLocked(ctx); err != nil {
		log.Error().Err(err).Msg("failed to persist after clearing conversation")
	}
}

// SaveAll persists the collection to both backends. It is idempotent and is
// the entry point the host calls on shutdown. The returned error is
// advisory: in-memory state is the source of truth and is never rolled
// back.
func (s *Store) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Store) indexOfLocked(id uuid.UUID) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked enforces the history cap, then writes the collection to the
// primary file and the key-value backup. Failures are collected and
// returned but never abort: each backend is attempted independently.
func (s *Store) persistLocked(ctx context.Context) error {
	if len(s.conversations) > s.historyLimit {
		s.conversations = s.conversations[:s.historyLimit]
	}

	data, err := json.MarshalIndent(s.conversations, "", "  ")
	if err != nil {
		return err
	}

	var errs []error

	if err := s.files.Write(s.filePath, data); err != nil {
		log.Error().Err(err).Str("path", s.filePath).Msg("failed to write conversations file")
		errs = append(errs, err)
	} else if err := s.kv.Set(ctx, kvKeyFilePath, []byte(s.filePath)); err != nil {
		log.Error().Err(err).Msg("failed to record conversations path")
		errs = append(errs, err)
	}

	if err := s.kv.Set(ctx, kvKeyBackup, data); err != nil {
		log.Error().Err(err).Msg("failed to write conversations backup")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
