package suppression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedger(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLedger(5 * time.Minute).WithClock(func() time.Time { return now })

	assert.False(t, l.IsSuppressed("m2"))
	l.MarkSuppressed("m2")
	l.MarkSuppressed("")
	assert.True(t, l.IsSuppressed("m2"))
	assert.Equal(t, 1, l.Len())

	now = now.Add(4 * time.Minute)
	assert.True(t, l.IsSuppressed("m2"))

	now = now.Add(time.Minute)
	assert.False(t, l.IsSuppressed("m2"), "entry expires exactly at the window")
	assert.Equal(t, 0, l.Len(), "expired entry is dropped on read")
}

func TestLedgerSweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLedger(time.Minute).WithClock(func() time.Time { return now })

	l.MarkSuppressed("a")
	now = now.Add(30 * time.Second)
	l.MarkSuppressed("b")

	assert.Equal(t, 1, l.Sweep(now.Add(30*time.Second)))
	assert.True(t, l.IsSuppressed("b"))
	assert.Equal(t, 1, l.Sweep(now.Add(time.Hour)))
	assert.Equal(t, 0, l.Len())
}

func TestLedgerDefaultsAndClear(t *testing.T) {
	l := NewLedger(0)
	assert.Equal(t, DefaultWindow, l.window)
	l.MarkSuppressed("x")
	l.Clear()
	assert.False(t, l.IsSuppressed("x"))
}
