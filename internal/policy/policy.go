// Package policy decides, per bot identity and conversation, whether incoming
// content is retained for deletion recovery.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Mode selects which conversation types are captured.
type Mode string

const (
	ModeOff        Mode = "off"
	ModeDirectOnly Mode = "direct"
	ModeGroupOnly  Mode = "group"
	ModeBoth       Mode = "both"
)

var (
	// ErrPolicyNotFound is returned by a Repository when no configuration
	// exists for a bot identity.
	ErrPolicyNotFound = errors.New("capture policy not found")
	// ErrInvalidMode is returned by ParseMode for unknown mode names.
	ErrInvalidMode = errors.New("invalid capture mode")
)

// ParseMode converts an operator-supplied name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "disable", "disabled":
		return ModeOff, nil
	case "direct", "private", "dm", "direct-only":
		return ModeDirectOnly, nil
	case "group", "groups", "group-only":
		return ModeGroupOnly, nil
	case "both", "all", "on":
		return ModeBoth, nil
	default:
		return ModeOff, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Policy is the capture configuration of one bot identity.
type Policy struct {
	Mode                 Mode
	Excluded             map[string]struct{}
	ForwardToAlternate   bool
	AlternateDestination string
}

// Default is the policy used when nothing is configured: capture nothing.
func Default() Policy {
	return Policy{Mode: ModeOff, Excluded: map[string]struct{}{}}
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (p Policy) Clone() Policy {
	out := p
	out.Excluded = make(map[string]struct{}, len(p.Excluded))
	for k := range p.Excluded {
		out.Excluded[k] = struct{}{}
	}
	return out
}

// IsExcluded reports whether the conversation is on the exclusion list.
func (p Policy) IsExcluded(conversationID string) bool {
	_, ok := p.Excluded[conversationID]
	return ok
}

// ExcludedList returns the excluded conversations in sorted order.
func (p Policy) ExcludedList() []string {
	out := make([]string, 0, len(p.Excluded))
	for k := range p.Excluded {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Allows applies the capture rule to a conversation.
func (p Policy) Allows(conversationID string, isGroup bool) bool {
	if p.Mode == ModeOff || p.Mode == "" {
		return false
	}
	if p.IsExcluded(conversationID) {
		return false
	}
	switch p.Mode {
	case ModeBoth:
		return true
	case ModeGroupOnly:
		return isGroup
	case ModeDirectOnly:
		return !isGroup
	default:
		return false
	}
}

// Repository persists policies. Implementations live in internal/database.
type Repository interface {
	// GetPolicy returns ErrPolicyNotFound if the bot has no configuration.
	GetPolicy(ctx context.Context, botID string) (*Policy, error)
	SavePolicy(ctx context.Context, botID string, p Policy) error
}
