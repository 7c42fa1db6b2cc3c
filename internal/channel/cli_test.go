package channel

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"pastebot/internal/domain"
)

func TestScanLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single link", "http://a.co", []string{"http://a.co"}},
		{"two links with words", "see http://a.co and https://b.co/path", []string{"http://a.co", "https://b.co/path"}},
		{"no links", "just plain words", nil},
		{"scheme must lead the token", "foohttp://a.co", nil},
		{"tab separated", "a\thttp://a.co\tb", []string{"http://a.co"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ents := scanLinks(tt.text)
			if len(ents) != len(tt.want) {
				t.Fatalf("got %d entities, want %d", len(ents), len(tt.want))
			}
			for i, want := range tt.want {
				got := tt.text[ents[i].Offset : ents[i].Offset+ents[i].Length]
				if got != want {
					t.Errorf("entity %d slices to %q, want %q", i, got, want)
				}
				if resolved := ents[i].ResolveURL(tt.text); resolved != want {
					t.Errorf("entity %d resolves to %q, want %q", i, resolved, want)
				}
			}
		})
	}
}

type captureBus struct {
	msgs chan domain.InboundMessage
}

func (b *captureBus) Publish(msg domain.InboundMessage)               { b.msgs <- msg }
func (b *captureBus) Subscribe() <-chan domain.InboundMessage         { return b.msgs }
func (b *captureBus) SendOutbound(domain.OutboundMessage)             {}
func (b *captureBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *captureBus) Close()                                          {}

func runCLIWith(t *testing.T, input string) []domain.InboundMessage {
	t.Helper()
	bus := &captureBus{msgs: make(chan domain.InboundMessage, 16)}
	c := NewCLI(CLIConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		In:     strings.NewReader(input),
		Out:    &bytes.Buffer{},
	})

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), bus) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CLI did not exit on EOF")
	}

	close(bus.msgs)
	var out []domain.InboundMessage
	for msg := range bus.msgs {
		out = append(out, msg)
	}
	return out
}

func TestCLI_CommandLine(t *testing.T) {
	msgs := runCLIWith(t, "/paste hello world\n")
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Command != "paste" || m.Text != "/paste hello world" {
		t.Errorf("message = %+v", m)
	}
	if m.Channel != "cli" || m.SenderID != "operator" || m.ChatID != "direct" {
		t.Errorf("envelope = %+v", m)
	}
}

func TestCLI_LinkLine(t *testing.T) {
	msgs := runCLIWith(t, "check http://a.co please\n")
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Command != "" || len(m.Entities) != 1 {
		t.Fatalf("message = %+v", m)
	}
	if got := m.Entities[0].ResolveURL(m.Text); got != "http://a.co" {
		t.Errorf("resolved = %q", got)
	}
}

func TestCLI_BlankAndQuit(t *testing.T) {
	msgs := runCLIWith(t, "\n  \n/quit\nnever seen\n")
	if len(msgs) != 0 {
		t.Errorf("published %d messages, want 0: %+v", len(msgs), msgs)
	}
}

func TestCLI_MessageIDsIncrease(t *testing.T) {
	msgs := runCLIWith(t, "/paste a\n/paste b\n")
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	if msgs[0].MessageID >= msgs[1].MessageID {
		t.Errorf("message IDs not increasing: %d, %d", msgs[0].MessageID, msgs[1].MessageID)
	}
}
