// Package access implements the operator allow-list gate. Every restricted
// handler calls Admit before doing any work; rejected senders get no reply,
// no acknowledgment and no queued work, so the bot stays invisible to them.
package access

import "strings"

// Gate decides whether a sender may use the bot's restricted commands.
type Gate struct {
	allowed map[string]struct{}
}

// NewGate builds a gate from the configured sender IDs. Blank entries are
// ignored so a sloppy config can't accidentally admit the empty sender.
func NewGate(senderIDs []string) *Gate {
	allowed := make(map[string]struct{}, len(senderIDs))
	for _, id := range senderIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		allowed[id] = struct{}{}
	}
	return &Gate{allowed: allowed}
}

// Admit reports whether senderID is on the allow-list. An empty allow-list
// admits nobody: a single-operator bot running without an operator configured
// must not be open to the world.
func (g *Gate) Admit(senderID string) bool {
	_, ok := g.allowed[senderID]
	return ok
}

// Size returns the number of configured operators.
func (g *Gate) Size() int { return len(g.allowed) }
