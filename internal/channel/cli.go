package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pastebot/internal/domain"
)

// CLI implements domain.Channel as a local line-oriented console, mainly
// for trying commands and link handling without a Telegram token.
// Attachments are not supported here.
type CLI struct {
	bus    domain.MessageBus
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	nextID int
}

type CLIConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL and blocks until context is cancelled or input ends.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(msg domain.OutboundMessage) {
		_, _ = fmt.Fprintln(c.out, "--- PasteBot ---")
		_, _ = fmt.Fprintln(c.out, msg.Content)
		_, _ = fmt.Fprintln(c.out, "----------------")
		_, _ = fmt.Fprint(c.out, "You> ")
	})

	_, _ = fmt.Fprintln(c.out, "PasteBot CLI. Try /paste <content>, /pasten <name> <content>, or send a link. /quit to exit.")
	_, _ = fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		c.nextID++
		msg := domain.InboundMessage{
			Channel:   "cli",
			ChatID:    "direct",
			MessageID: c.nextID,
			SenderID:  "operator",
			Text:      line,
		}
		if strings.HasPrefix(line, "/") {
			token := strings.TrimPrefix(line, "/")
			if i := strings.IndexByte(token, ' '); i >= 0 {
				token = token[:i]
			}
			msg.Command = token
		} else {
			msg.Entities = scanLinks(line)
		}

		c.bus.Publish(msg)
	}
}

// Stop is a no-op for CLI (we exit when Start returns).
func (c *CLI) Stop() error { return nil }

// scanLinks finds whitespace-delimited http(s) tokens and emits bare URL
// entities with exact byte offsets, matching what Telegram would send.
func scanLinks(text string) []domain.Entity {
	var ents []domain.Entity
	for start := 0; start < len(text); {
		for start < len(text) && (text[start] == ' ' || text[start] == '\t') {
			start++
		}
		end := start
		for end < len(text) && text[end] != ' ' && text[end] != '\t' {
			end++
		}
		word := text[start:end]
		if strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://") {
			ents = append(ents, domain.Entity{
				Kind:   domain.EntityURL,
				Offset: start,
				Length: end - start,
			})
		}
		start = end
	}
	return ents
}
