// Package identity normalizes the different identifier forms the platform
// uses for one account so they can be compared directly.
package identity

import (
	"strings"
	"sync"
)

// channelPrefixes are conversation-key prefixes that may precede an identifier.
var channelPrefixes = []string{"tg:", "wa:"}

// Canonical reduces an account identifier to its comparable form.
//
// The accepted shapes are a bare id ("12345"), a username ("@Alice"), a
// channel-prefixed id ("tg:12345"), a server-qualified id ("12345@lid") and a
// device-qualified id ("12345:7@s.whatsapp.net"). Usernames keep their
// leading "@" so they never collide with numeric ids.
func Canonical(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "@") {
		return "@" + strings.TrimLeft(id, "@")
	}
	for _, prefix := range channelPrefixes {
		id = strings.TrimPrefix(id, prefix)
	}
	if at := strings.IndexByte(id, '@'); at >= 0 {
		id = id[:at]
	}
	if colon := strings.IndexByte(id, ':'); colon >= 0 {
		id = id[:colon]
	}
	return id
}

// Directory maps secondary identifiers (usernames, linked-device ids) to the
// primary identifier of the same account.
type Directory struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewDirectory creates an empty alias directory.
func NewDirectory() *Directory {
	return &Directory{aliases: make(map[string]string)}
}

// Learn records that alias and primary name the same account.
// Self-aliases and empty values are ignored.
func (d *Directory) Learn(alias, primary string) {
	a, p := Canonical(alias), Canonical(primary)
	if a == "" || p == "" || a == p {
		return
	}
	d.mu.Lock()
	d.aliases[a] = p
	d.mu.Unlock()
}

// Resolve canonicalizes raw and follows a single alias hop.
func (d *Directory) Resolve(raw string) string {
	id := Canonical(raw)
	if id == "" || d == nil {
		return id
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if primary, ok := d.aliases[id]; ok {
		return primary
	}
	return id
}

// Same reports whether a and b resolve to the same non-empty account.
func (d *Directory) Same(a, b string) bool {
	ra, rb := d.Resolve(a), d.Resolve(b)
	return ra != "" && ra == rb
}

// Len returns the number of known aliases.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.aliases)
}
