package dispatch

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"pastebot/internal/domain"
)

// ErrMalformedCommand reports a paste command missing a required argument.
// Handlers surface this to the user instead of proceeding with an empty payload.
var ErrMalformedCommand = errors.New("malformed command")

// ErrUnroutable reports a message that carries no command, links or attachments.
var ErrUnroutable = errors.New("unroutable message")

// Router classifies an inbound message into exactly one work kind and
// produces the WorkContext for it. Routing is pure and synchronous.
type Router struct{}

func (Router) Route(msg domain.InboundMessage) (WorkContext, error) {
	wc := WorkContext{
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
	}

	switch msg.Command {
	case "paste":
		return routePaste(wc, msg.Text, KindPasteText, false, false)
	case "pastei":
		return routePaste(wc, msg.Text, KindPasteImage, false, true)
	case "pasten":
		return routePaste(wc, msg.Text, KindPasteNamed, true, false)
	case "":
		// Not a command: attachments win over links so a captioned file
		// is still classified as exactly one kind.
		if len(msg.Attachments) > 0 {
			wc.Kind = KindFileSet
			wc.Attachments = msg.Attachments
			return wc, nil
		}
		if len(msg.Entities) > 0 {
			wc.Kind = KindLinkSet
			wc.Text = msg.Text
			wc.Entities = msg.Entities
			return wc, nil
		}
		return WorkContext{}, fmt.Errorf("%w: no links or attachments", ErrUnroutable)
	default:
		return WorkContext{}, fmt.Errorf("%w: unknown command /%s", ErrUnroutable, msg.Command)
	}
}

// routePaste parses a paste command's raw text. The text still carries the
// command token ("/paste hello world"), so the split discards field 0.
// The last field is always the literal content and may contain spaces;
// a filename, when expected, must not.
func routePaste(wc WorkContext, text string, kind Kind, wantName, asImage bool) (WorkContext, error) {
	if wantName {
		parts := strings.SplitN(text, " ", 3)
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			return WorkContext{}, fmt.Errorf("%w: usage: /pasten <filename> <content>", ErrMalformedCommand)
		}
		wc.Kind = kind
		// Only the base name survives; directory components in a
		// user-supplied filename are never forwarded to the paste host.
		wc.FileName = path.Base(parts[1])
		wc.Content = parts[2]
		return wc, nil
	}

	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 || parts[1] == "" {
		return WorkContext{}, fmt.Errorf("%w: usage: /%s <content>", ErrMalformedCommand, commandToken(kind))
	}
	wc.Kind = kind
	wc.Content = parts[1]
	wc.AsImage = asImage
	return wc, nil
}

func commandToken(kind Kind) string {
	if kind == KindPasteImage {
		return "pastei"
	}
	return "paste"
}
