// Package dispatch is the deferred dispatch and response-assembly pipeline:
// it turns an inbound chat message into a queued unit of work, routes it by
// content kind, invokes the upload collaborators and composes the reply.
package dispatch

import "pastebot/internal/domain"

// Kind classifies a unit of deferred work.
type Kind string

const (
	KindPasteText  Kind = "paste-text"
	KindPasteNamed Kind = "paste-named"
	KindPasteImage Kind = "paste-image"
	KindLinkSet    Kind = "link-set"
	KindFileSet    Kind = "file-set"
)

// WorkContext is the state captured at enqueue time and carried opaquely
// through the queue to the deferred handler. It is created once, never
// mutated, and consumed by exactly one handler run.
type WorkContext struct {
	Channel   string
	ChatID    string
	MessageID int // the message every reply is addressed to

	Kind Kind

	// paste-text / paste-named / paste-image payload
	Content  string
	FileName string
	AsImage  bool

	// link-set payload; Text is the raw message text the entity
	// offsets index into
	Text     string
	Entities []domain.Entity

	// file-set payload
	Attachments []domain.Attachment
}
