package models

import (
	"time"

	"antidelete-bot/internal/policy"
)

// CapturePolicy is the stored form of a policy.Policy.
type CapturePolicy struct {
	BotID                string    `bson:"bot_id"`
	Mode                 string    `bson:"mode"`
	Excluded             []string  `bson:"excluded"`
	ForwardToAlternate   bool      `bson:"forward_to_alternate"`
	AlternateDestination string    `bson:"alternate_destination,omitempty"`
	UpdatedAt            time.Time `bson:"updated_at"`
}

// NewCapturePolicy converts p for storage.
func NewCapturePolicy(botID string, p policy.Policy, now time.Time) CapturePolicy {
	return CapturePolicy{
		BotID:                botID,
		Mode:                 string(p.Mode),
		Excluded:             p.ExcludedList(),
		ForwardToAlternate:   p.ForwardToAlternate,
		AlternateDestination: p.AlternateDestination,
		UpdatedAt:            now,
	}
}

// Policy converts the stored form back. Unknown modes read as off.
func (c CapturePolicy) Policy() *policy.Policy {
	mode, err := policy.ParseMode(c.Mode)
	if err != nil {
		mode = policy.ModeOff
	}
	p := policy.Default()
	p.Mode = mode
	for _, id := range c.Excluded {
		p.Excluded[id] = struct{}{}
	}
	p.ForwardToAlternate = c.ForwardToAlternate
	p.AlternateDestination = c.AlternateDestination
	return &p
}
