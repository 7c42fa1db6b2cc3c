package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pastebot/internal/access"
	"pastebot/internal/domain"
	"pastebot/internal/metrics"
)

const (
	greeting     = "Hello! Send me a link or file but tread with caution. I only tend to my master."
	ackText      = "Processing"
	commandStart = "start"
)

// Dispatcher is the entry point of the pipeline: it consumes inbound
// messages from the bus, applies the access gate, acknowledges accepted
// messages and enqueues the deferred work. All collaborators are passed
// in explicitly; there is no global bot state.
type Dispatcher struct {
	gate     *access.Gate
	router   Router
	queue    *Queue
	coord    *Coordinator
	reporter *Reporter
	bus      domain.MessageBus
	logger   *slog.Logger
}

type DispatcherConfig struct {
	Gate        *access.Gate
	Queue       *Queue
	Coordinator *Coordinator
	Reporter    *Reporter
	Bus         domain.MessageBus
	Logger      *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		gate:     cfg.Gate,
		queue:    cfg.Queue,
		coord:    cfg.Coordinator,
		reporter: cfg.Reporter,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
	}
}

// Run consumes inbound messages until ctx is cancelled or the bus closes.
func (d *Dispatcher) Run(ctx context.Context) {
	inbound := d.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			d.Handle(ctx, msg)
		}
	}
}

// Handle processes one inbound message: greeting, gate, route, ack, enqueue.
func (d *Dispatcher) Handle(ctx context.Context, msg domain.InboundMessage) {
	// /start always answers; it is the one ungated command.
	if msg.Command == commandStart {
		d.reporter.Reply(msg.Channel, msg.ChatID, 0, greeting)
		return
	}

	if !d.gate.Admit(msg.SenderID) {
		// No reply, no queueing, nothing that would confirm the bot's
		// existence to an unauthorized sender.
		d.logger.Warn("unauthorized sender dropped",
			"channel", msg.Channel,
			"sender", msg.SenderID,
		)
		metrics.AccessDenied.Inc()
		return
	}

	wc, err := d.router.Route(msg)
	if err != nil {
		if errors.Is(err, ErrMalformedCommand) {
			// Fail fast and visibly instead of queueing a corrupt payload.
			d.reporter.Reply(msg.Channel, msg.ChatID, msg.MessageID, usageText(err))
			return
		}
		d.logger.Debug("message not routable", "err", err)
		return
	}

	metrics.MessagesTotal.Inc()

	// The ack is sent synchronously before the task is enqueued, so it
	// always precedes every deferred reply for this message.
	d.reporter.Reply(msg.Channel, msg.ChatID, msg.MessageID, ackText)
	d.queue.Enqueue(d.coord.Process, wc)
}

func usageText(err error) string {
	s := err.Error()
	if i := strings.Index(s, "usage:"); i >= 0 {
		return strings.TrimSpace(s[i:])
	}
	return s
}
