package dispatch

import (
	"log/slog"

	"pastebot/internal/domain"
	"pastebot/internal/metrics"
)

// Reporter sends composed text back into the originating conversation,
// addressed as a reply to the original message. Fire-and-forget: delivery
// confirmation never feeds back into the pipeline.
type Reporter struct {
	bus    domain.MessageBus
	logger *slog.Logger
}

func NewReporter(bus domain.MessageBus, logger *slog.Logger) *Reporter {
	return &Reporter{bus: bus, logger: logger}
}

func (r *Reporter) Reply(channel, chatID string, inReplyTo int, text string) {
	r.bus.SendOutbound(domain.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		ReplyTo: inReplyTo,
		Content: text,
	})
	metrics.RepliesTotal.Inc()
}
