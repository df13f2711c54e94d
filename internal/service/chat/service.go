package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyInput      = errors.New("message text is empty")
	ErrInvalidSender   = errors.New("invalid message sender")
)

const subscriberBuffer = 32

// Responder produces the assistant reply for a user message.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Service encapsulates conversation state management.
type Service struct {
	responder Responder
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	sessions    map[string]chat.Session
	messages    map[string][]chat.Message
	subscribers map[string]map[uint64]chan chat.Message
	nextSubID   uint64
}

// NewService bootstraps the in-memory chat service. Transcripts live only as
// long as the process.
func NewService(responder Responder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		responder:   responder,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		sessions:    make(map[string]chat.Session),
		messages:    make(map[string][]chat.Message),
		subscribers: make(map[string]map[uint64]chan chat.Message),
	}
}

// CreateSession provisions an anonymous conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", session.ID))
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// SaveMessage appends a message to the session history and fans it out to
// subscribers. ID and timestamp are assigned here.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if !message.Sender.Valid() {
		return chat.Message{}, ErrInvalidSender
	}

	id, err := uuid.NewV7()
	if err != nil {
		return chat.Message{}, fmt.Errorf("generate message id: %w", err)
	}
	message.ID = id.String()
	message.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)

	for subID, ch := range s.subscribers[message.SessionID] {
		select {
		case ch <- message:
		default:
			// 落后的订阅者被关闭，客户端重连后通过历史记录补齐
			s.logger.Warn("transcript subscriber is lagging, closing it",
				zap.String("session_id", message.SessionID),
				zap.Uint64("subscriber", subID),
			)
			s.unsubscribeLocked(message.SessionID, subID)
		}
	}
	return message, nil
}

// LoadTranscript returns stored messages for the provided session in order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Submit records the user's text, resolves the assistant reply and records it.
// Blank text is rejected before anything is appended.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyInput
	}
	if s.responder == nil {
		return chat.Message{}, errors.New("responder not configured")
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return chat.Message{}, err
	}

	if _, err := s.SaveMessage(ctx, chat.Message{SessionID: sessionID, Sender: chat.SenderUser, Text: text}); err != nil {
		return chat.Message{}, fmt.Errorf("save user message: %w", err)
	}

	reply, err := s.responder.Respond(ctx, text)
	if err != nil {
		return chat.Message{}, fmt.Errorf("resolve reply: %w", err)
	}

	assistant, err := s.SaveMessage(ctx, chat.Message{SessionID: sessionID, Sender: chat.SenderAssistant, Text: reply})
	if err != nil {
		return chat.Message{}, fmt.Errorf("save assistant message: %w", err)
	}
	return assistant, nil
}

// Subscribe streams every message appended to the session after the call.
// The channel is closed once ctx is done, or early if the subscriber falls
// more than a buffer behind; a closed channel with ctx still live means the
// caller missed messages and should reload the transcript.
func (s *Service) Subscribe(ctx context.Context, sessionID string) (<-chan chat.Message, error) {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	s.nextSubID++
	subID := s.nextSubID
	ch := make(chan chat.Message, subscriberBuffer)
	if s.subscribers[sessionID] == nil {
		s.subscribers[sessionID] = make(map[uint64]chan chat.Message)
	}
	s.subscribers[sessionID][subID] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.unsubscribeLocked(sessionID, subID)
		s.mu.Unlock()
	}()

	return ch, nil
}

// unsubscribeLocked must be called with s.mu held. It is a no-op for a
// subscriber that was already removed.
func (s *Service) unsubscribeLocked(sessionID string, subID uint64) {
	ch, ok := s.subscribers[sessionID][subID]
	if !ok {
		return
	}
	delete(s.subscribers[sessionID], subID)
	if len(s.subscribers[sessionID]) == 0 {
		delete(s.subscribers, sessionID)
	}
	close(ch)
}

// Conversation returns a handle bound to one session.
func (s *Service) Conversation(sessionID string) *Conversation {
	return &Conversation{svc: s, sessionID: sessionID}
}

// Conversation submits text to a single session and returns the reply text.
type Conversation struct {
	svc       *Service
	sessionID string
}

// SessionID returns the bound session identifier.
func (c *Conversation) SessionID() string {
	return c.sessionID
}

// Submit implements the chatbot's submit(text) -> response contract.
func (c *Conversation) Submit(ctx context.Context, text string) (string, error) {
	reply, err := c.svc.Submit(ctx, c.sessionID, text)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}
