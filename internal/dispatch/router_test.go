package dispatch

import (
	"errors"
	"testing"

	"pastebot/internal/domain"
)

func TestRouter_PasteCommands(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		text     string
		wantKind Kind
		wantContent  string
		wantFileName string
		wantAsImage  bool
	}{
		{
			name: "paste with spaced content", command: "paste", text: "/paste hello world",
			wantKind: KindPasteText, wantContent: "hello world",
		},
		{
			name: "pasten with filename", command: "pasten", text: "/pasten notes.txt hello world",
			wantKind: KindPasteNamed, wantContent: "hello world", wantFileName: "notes.txt",
		},
		{
			name: "pasten strips directory components", command: "pasten", text: "/pasten /etc/passwd hello",
			wantKind: KindPasteNamed, wantContent: "hello", wantFileName: "passwd",
		},
		{
			name: "pasten with relative traversal", command: "pasten", text: "/pasten ../../secret.txt data",
			wantKind: KindPasteNamed, wantContent: "data", wantFileName: "secret.txt",
		},
		{
			name: "pastei requests image", command: "pastei", text: "/pastei some code",
			wantKind: KindPasteImage, wantContent: "some code", wantAsImage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc, err := Router{}.Route(domain.InboundMessage{
				Channel: "telegram", ChatID: "1", MessageID: 7,
				Command: tt.command, Text: tt.text,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wc.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", wc.Kind, tt.wantKind)
			}
			if wc.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", wc.Content, tt.wantContent)
			}
			if wc.FileName != tt.wantFileName {
				t.Errorf("filename = %q, want %q", wc.FileName, tt.wantFileName)
			}
			if wc.AsImage != tt.wantAsImage {
				t.Errorf("asImage = %v, want %v", wc.AsImage, tt.wantAsImage)
			}
			if wc.ChatID != "1" || wc.MessageID != 7 {
				t.Errorf("reply address not carried: chat=%q msg=%d", wc.ChatID, wc.MessageID)
			}
		})
	}
}

func TestRouter_MalformedCommands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		text    string
	}{
		{"paste without content", "paste", "/paste"},
		{"pastei without content", "pastei", "/pastei"},
		{"pasten without any argument", "pasten", "/pasten"},
		{"pasten without content", "pasten", "/pasten notes.txt"},
		{"pasten with empty filename field", "pasten", "/pasten  content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Router{}.Route(domain.InboundMessage{Command: tt.command, Text: tt.text})
			if !errors.Is(err, ErrMalformedCommand) {
				t.Errorf("err = %v, want ErrMalformedCommand", err)
			}
		})
	}
}

func TestRouter_LinkSet(t *testing.T) {
	msg := domain.InboundMessage{
		ChatID: "2", MessageID: 3,
		Text: "see http://a.co and http://b.co",
		Entities: []domain.Entity{
			{Kind: domain.EntityURL, Offset: 4, Length: 11},
			{Kind: domain.EntityURL, Offset: 20, Length: 11},
		},
	}

	wc, err := Router{}.Route(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wc.Kind != KindLinkSet {
		t.Fatalf("kind = %s, want %s", wc.Kind, KindLinkSet)
	}
	if len(wc.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(wc.Entities))
	}
	if wc.Text != msg.Text {
		t.Error("raw text must be carried for entity slicing")
	}
}

func TestRouter_FileSet(t *testing.T) {
	msg := domain.InboundMessage{
		Attachments: []domain.Attachment{{Kind: domain.AttachmentDocument, FileID: "f1"}},
	}

	wc, err := Router{}.Route(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wc.Kind != KindFileSet {
		t.Errorf("kind = %s, want %s", wc.Kind, KindFileSet)
	}
}

func TestRouter_AttachmentWinsOverLinks(t *testing.T) {
	msg := domain.InboundMessage{
		Text:        "http://a.co",
		Entities:    []domain.Entity{{Kind: domain.EntityURL, Offset: 0, Length: 11}},
		Attachments: []domain.Attachment{{Kind: domain.AttachmentPhoto, FileID: "p1"}},
	}

	wc, err := Router{}.Route(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wc.Kind != KindFileSet {
		t.Errorf("kind = %s, want %s", wc.Kind, KindFileSet)
	}
}

func TestRouter_Unroutable(t *testing.T) {
	_, err := Router{}.Route(domain.InboundMessage{Text: "just chatter"})
	if !errors.Is(err, ErrUnroutable) {
		t.Errorf("err = %v, want ErrUnroutable", err)
	}

	_, err = Router{}.Route(domain.InboundMessage{Command: "frobnicate", Text: "/frobnicate"})
	if !errors.Is(err, ErrUnroutable) {
		t.Errorf("unknown command err = %v, want ErrUnroutable", err)
	}
}
