package msgcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(opts Options) (*Store, *fakeClock) {
	clock := newFakeClock()
	return New(opts, WithClock(clock.Now)), clock
}

func TestCapacityKeepsMostRecent(t *testing.T) {
	const capacity = 5
	s, clock := newTestStore(Options{TextCapacity: capacity})

	for i := 0; i < 12; i++ {
		s.InsertText(fmt.Sprintf("m%d", i), "body", "u1")
		clock.Advance(time.Second)
	}

	text, _ := s.Len()
	assert.Equal(t, capacity, text)
	for i := 0; i < 7; i++ {
		_, ok := s.TakeText(fmt.Sprintf("m%d", i))
		assert.False(t, ok, "m%d should have been evicted", i)
	}
	for i := 7; i < 12; i++ {
		_, ok := s.TakeText(fmt.Sprintf("m%d", i))
		assert.True(t, ok, "m%d should be retained", i)
	}
}

func TestCapacityTwoKeepsLastTwo(t *testing.T) {
	s, clock := newTestStore(Options{TextCapacity: 2})
	for _, id := range []string{"m1", "m2", "m3"} {
		s.InsertText(id, id+"-body", "u1")
		clock.Advance(time.Millisecond)
	}

	_, ok := s.TakeText("m1")
	assert.False(t, ok)
	e2, ok := s.TakeText("m2")
	require.True(t, ok)
	assert.Equal(t, "m2-body", e2.Content)
	_, ok = s.TakeText("m3")
	assert.True(t, ok)
}

func TestUpsertRefreshesEvictionOrder(t *testing.T) {
	s, clock := newTestStore(Options{TextCapacity: 2})
	s.InsertText("a", "1", "u")
	clock.Advance(time.Second)
	s.InsertText("b", "1", "u")
	clock.Advance(time.Second)
	s.InsertText("a", "2", "u") // a is now the newest
	clock.Advance(time.Second)
	s.InsertText("c", "1", "u")

	_, ok := s.TakeText("b")
	assert.False(t, ok, "b is the oldest after a was rewritten")
	a, ok := s.TakeText("a")
	require.True(t, ok)
	assert.Equal(t, "2", a.Content)
}

func TestExpiry(t *testing.T) {
	s, clock := newTestStore(Options{Expiration: 30 * time.Minute})
	s.InsertText("m1", "hello", "u1")
	require.NoError(t, s.InsertMedia("m2", []byte{1, 2, 3}, MediaImage, "", "cap", "u1"))

	clock.Advance(30 * time.Minute)

	_, ok := s.TakeText("m1")
	assert.False(t, ok, "expired text must not be returned even before a sweep")
	_, ok = s.TakeMedia("m2")
	assert.False(t, ok)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s, clock := newTestStore(Options{Expiration: 10 * time.Minute})
	s.InsertText("old", "x", "u")
	clock.Advance(6 * time.Minute)
	s.InsertText("new", "y", "u")
	require.NoError(t, s.InsertMedia("old-media", []byte("p"), MediaVoice, "", "", "u"))
	clock.Advance(5 * time.Minute)

	removed := s.Sweep(clock.Now())
	assert.Equal(t, 1, removed)
	text, media := s.Len()
	assert.Equal(t, 1, text)
	assert.Equal(t, 1, media)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 2, s.Sweep(clock.Now()))
}

func TestTakeIsAtMostOnce(t *testing.T) {
	s, _ := newTestStore(Options{})
	s.InsertText("m1", "hello", "u1")

	first, ok := s.TakeText("m1")
	require.True(t, ok)
	assert.Equal(t, "hello", first.Content)
	assert.Equal(t, "u1", first.SenderIdentity)

	_, ok = s.TakeText("m1")
	assert.False(t, ok)

	require.NoError(t, s.InsertMedia("m2", []byte("img"), MediaImage, "", "c", "u2"))
	_, ok = s.TakeMedia("m2")
	assert.True(t, ok)
	_, ok = s.TakeMedia("m2")
	assert.False(t, ok)
}

func TestIdempotentUpsert(t *testing.T) {
	s, _ := newTestStore(Options{})
	s.InsertText("m1", "first", "u1")
	s.InsertText("m1", "second", "u1")

	text, _ := s.Len()
	assert.Equal(t, 1, text)
	e, ok := s.TakeText("m1")
	require.True(t, ok)
	assert.Equal(t, "second", e.Content)
}

func TestTextAndMediaAreExclusive(t *testing.T) {
	s, _ := newTestStore(Options{})
	s.InsertText("m1", "text", "u1")
	require.NoError(t, s.InsertMedia("m1", []byte("jpg"), MediaImage, "", "", "u1"))

	text, media := s.Len()
	assert.Equal(t, 0, text)
	assert.Equal(t, 1, media)

	s.InsertText("m1", "text again", "u1")
	text, media = s.Len()
	assert.Equal(t, 1, text)
	assert.Equal(t, 0, media)
}

func TestInsertMediaRejectsBadPayloads(t *testing.T) {
	s, _ := newTestStore(Options{MaxMediaBytes: 4})
	assert.ErrorIs(t, s.InsertMedia("m1", nil, MediaImage, "", "", "u"), ErrEmptyPayload)
	assert.ErrorIs(t, s.InsertMedia("m1", []byte("12345"), MediaImage, "", "", "u"), ErrPayloadTooLarge)
	_, media := s.Len()
	assert.Equal(t, 0, media)
}

func TestMediaCapacity(t *testing.T) {
	s, clock := newTestStore(Options{MediaCapacity: 1})
	require.NoError(t, s.InsertMedia("a", []byte("1"), MediaSticker, "", "", "u"))
	clock.Advance(time.Second)
	require.NoError(t, s.InsertMedia("b", []byte("2"), MediaDocument, "contract.pdf", "doc", "u"))

	_, ok := s.TakeMedia("a")
	assert.False(t, ok)
	b, ok := s.TakeMedia("b")
	require.True(t, ok)
	assert.Equal(t, MediaDocument, b.Kind)
	assert.Equal(t, "contract.pdf", b.FileName)
	assert.Equal(t, "doc", b.Caption)
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(Options{})
	s.InsertText("a", "1", "u")
	require.NoError(t, s.InsertMedia("b", []byte("1"), MediaAudio, "", "", "u"))
	s.Clear()
	text, media := s.Len()
	assert.Zero(t, text)
	assert.Zero(t, media)
}

func TestParseMediaKind(t *testing.T) {
	k, err := ParseMediaKind(" Video ")
	require.NoError(t, err)
	assert.Equal(t, MediaVideo, k)
	_, err = ParseMediaKind("gif")
	assert.Error(t, err)
}
