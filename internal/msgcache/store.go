// Package msgcache holds recently seen message content in memory so it can be
// recovered after the platform reports the message as deleted.
//
// The store is bounded two ways: entries expire after a fixed window, and each
// cache (text, media) has a capacity beyond which the oldest entry is evicted.
package msgcache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultExpiration    = 30 * time.Minute
	DefaultTextCapacity  = 5000
	DefaultMediaCapacity = 200
	DefaultMaxMediaBytes = 20 << 20
)

var (
	// ErrEmptyPayload is returned when media without content is inserted.
	ErrEmptyPayload = errors.New("media payload is empty")
	// ErrPayloadTooLarge is returned when media exceeds Options.MaxMediaBytes.
	ErrPayloadTooLarge = errors.New("media payload exceeds size limit")
)

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	Expiration    time.Duration
	TextCapacity  int
	MediaCapacity int
	MaxMediaBytes int
}

func (o Options) withDefaults() Options {
	if o.Expiration <= 0 {
		o.Expiration = DefaultExpiration
	}
	if o.TextCapacity <= 0 {
		o.TextCapacity = DefaultTextCapacity
	}
	if o.MediaCapacity <= 0 {
		o.MediaCapacity = DefaultMediaCapacity
	}
	if o.MaxMediaBytes <= 0 {
		o.MaxMediaBytes = DefaultMaxMediaBytes
	}
	return o
}

// Option customizes a Store at construction.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger for eviction and sweep diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the ephemeral text and media cache of one bot identity.
// A message id lives in at most one of the two caches.
type Store struct {
	mu    sync.Mutex
	text  *bucket[*CapturedText]
	media *bucket[*CapturedMedia]

	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// New creates a store with the given limits.
func New(opts Options, options ...Option) *Store {
	opts = opts.withDefaults()
	s := &Store{
		text:   newBucket[*CapturedText](opts.TextCapacity),
		media:  newBucket[*CapturedMedia](opts.MediaCapacity),
		opts:   opts,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the effective limits.
func (s *Store) Options() Options {
	return s.opts
}

// InsertText upserts a text entry; the last write for an id wins.
func (s *Store) InsertText(messageID, content, senderIdentity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &CapturedText{
		MessageID:      messageID,
		Content:        content,
		SenderIdentity: senderIdentity,
		InsertedAt:     s.now(),
	}
	s.media.remove(messageID)
	if evicted := s.text.put(messageID, entry); evicted > 0 {
		s.logger.Debug("Evicted text entries over capacity",
			zap.Int("evicted", evicted), zap.Int("capacity", s.opts.TextCapacity))
	}
}

// InsertMedia upserts a media entry; the last write for an id wins.
func (s *Store) InsertMedia(messageID string, payload []byte, kind MediaKind, fileName, caption, senderIdentity string) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if len(payload) > s.opts.MaxMediaBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(payload), s.opts.MaxMediaBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &CapturedMedia{
		MessageID:      messageID,
		Payload:        payload,
		Kind:           kind,
		FileName:       fileName,
		Caption:        caption,
		SenderIdentity: senderIdentity,
		InsertedAt:     s.now(),
	}
	s.text.remove(messageID)
	if evicted := s.media.put(messageID, entry); evicted > 0 {
		s.logger.Debug("Evicted media entries over capacity",
			zap.Int("evicted", evicted), zap.Int("capacity", s.opts.MediaCapacity))
	}
	return nil
}

// TakeText removes and returns the text entry for messageID.
// A second call for the same id returns false.
func (s *Store) TakeText(messageID string) (*CapturedText, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.take(messageID, s.now(), s.opts.Expiration)
}

// TakeMedia removes and returns the media entry for messageID.
func (s *Store) TakeMedia(messageID string) (*CapturedMedia, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media.take(messageID, s.now(), s.opts.Expiration)
}

// Sweep removes every entry older than the expiration window and returns the
// number removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.text.sweep(now, s.opts.Expiration) + s.media.sweep(now, s.opts.Expiration)
	if removed > 0 {
		s.logger.Debug("Swept expired entries", zap.Int("removed", removed))
	}
	return removed
}

// Len returns the current sizes of the text and media caches.
func (s *Store) Len() (text, media int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.len(), s.media.len()
}

// Clear drops everything.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.clear()
	s.media.clear()
}
