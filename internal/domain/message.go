package domain

import "time"

// EntityKind distinguishes the two link forms Telegram delivers:
// a bare URL written in the text, or a text span linking elsewhere.
type EntityKind string

const (
	EntityURL      EntityKind = "url"
	EntityTextLink EntityKind = "text_link"
)

// Entity is one link-bearing span of a message's text.
// Offset and Length are byte indexes into InboundMessage.Text; the channel
// that produced the message converts whatever index space the wire protocol
// uses (Telegram counts UTF-16 code units) before publishing.
type Entity struct {
	Kind   EntityKind
	Offset int
	Length int
	URL    string // literal target for text_link entities, empty for bare URLs
}

// ResolveURL returns the entity's literal URL: the embedded target when the
// entity carries one, otherwise the exact text slice at [Offset, Offset+Length).
// Returns "" when the span falls outside the text.
func (e Entity) ResolveURL(text string) string {
	if e.URL != "" {
		return e.URL
	}
	end := e.Offset + e.Length
	if e.Offset < 0 || e.Length <= 0 || end > len(text) {
		return ""
	}
	return text[e.Offset:end]
}

// AttachmentKind is the declared media kind of an attachment.
type AttachmentKind string

const (
	AttachmentDocument AttachmentKind = "document"
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentVideo    AttachmentKind = "video"
	AttachmentVoice    AttachmentKind = "voice"
	AttachmentUnknown  AttachmentKind = "unknown"
)

// Uploadable reports whether the upload collaborator has a path for this kind.
func (k AttachmentKind) Uploadable() bool {
	switch k {
	case AttachmentDocument, AttachmentPhoto, AttachmentAudio, AttachmentVideo, AttachmentVoice:
		return true
	}
	return false
}

// Attachment identifies one uploadable media item. FileName is only set when
// the transport declares one (documents); for everything else the name is
// derived later from the resolved storage path.
type Attachment struct {
	Kind     AttachmentKind
	FileID   string
	FileName string
	FileSize int64
}

// InboundMessage is a single received chat event. Immutable once built.
type InboundMessage struct {
	Channel     string
	ChatID      string
	MessageID   int
	SenderID    string
	Text        string
	Command     string // bare command token ("paste"), empty for plain messages
	Entities    []Entity
	Attachments []Attachment
	Timestamp   time.Time
}

// OutboundMessage is a reply to be delivered by a channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	ReplyTo int // message ID to reply to; 0 sends without a reply reference
	Content string
}
