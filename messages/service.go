package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("message not found")
)

// DefaultTimeFormat renders creation times like "2024/5/1 13:04:05".
const DefaultTimeFormat = "2006/1/2 15:04:05"

// Notifier is told about every committed change.
type Notifier interface {
	Notify(event Event)
}

// Recorder counts board activity, typically into prometheus.
type Recorder interface {
	MessageCreated()
	MessageDeleted()
	LikeApplied(action string)
}

type Options struct {
	TimeFormat string
	Now        func() time.Time
	Notifier   Notifier
	Recorder   Recorder
	Logger     *zap.SugaredLogger
}

// Service implements the board operations on top of a Store.
type Service struct {
	store      Store
	timeFormat string
	now        func() time.Time
	notifier   Notifier
	recorder   Recorder
	logger     *zap.SugaredLogger
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		timeFormat: opts.TimeFormat,
		now:        opts.Now,
		notifier:   opts.Notifier,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	if s.timeFormat == "" {
		s.timeFormat = DefaultTimeFormat
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	return s
}

// Store exposes the backing store for read-only consumers such as metrics.
func (s *Service) Store() Store {
	return s.store
}

// List returns every message, newest first.
func (s *Service) List(ctx context.Context) ([]Message, error) {
	return s.store.List(ctx)
}

// Create stores content verbatim; it only has to be non-blank.
func (s *Service) Create(ctx context.Context, content string) (*CreateMessageResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}

	stamp := s.now().Local().Format(s.timeFormat)
	msg, err := s.store.Create(ctx, content, stamp)
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("message created", "id", msg.ID)
	if s.recorder != nil {
		s.recorder.MessageCreated()
	}
	s.notify(Event{Type: EventCreated, ID: msg.ID})

	return &CreateMessageResponse{ID: msg.ID, Content: msg.Content, Time: msg.Time}, nil
}

func (s *Service) Delete(ctx context.Context, id int64) (*DeleteMessageResponse, error) {
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Debugw("message deleted", "id", id)
	if s.recorder != nil {
		s.recorder.MessageDeleted()
	}
	s.notify(Event{Type: EventDeleted, ID: id})

	return &DeleteMessageResponse{Success: true}, nil
}

// ToggleLike applies action to the counter of message id. Unlike on a zero
// counter succeeds and leaves it at zero.
func (s *Service) ToggleLike(ctx context.Context, id int64, action string) (*ToggleLikeResponse, error) {
	var (
		likes   int
		applied string
		err     error
	)
	switch action {
	case ActionLike:
		likes, err = s.store.IncrementLikes(ctx, id)
		applied = AppliedLiked
	case ActionUnlike:
		likes, err = s.store.DecrementLikes(ctx, id)
		applied = AppliedUnliked
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.LikeApplied(action)
	}
	s.notify(Event{Type: EventLikesChanged, ID: id, Likes: &likes})

	return &ToggleLikeResponse{Success: true, Likes: likes, Action: applied}, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) notify(event Event) {
	if s.notifier != nil {
		s.notifier.Notify(event)
	}
}
