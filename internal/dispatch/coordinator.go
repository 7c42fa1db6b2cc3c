package dispatch

import (
	"context"
	"log/slog"
	"path"
	"time"

	"pastebot/internal/domain"
	"pastebot/internal/history"
	"pastebot/internal/metrics"
)

// HistoryRecorder persists completed work outcomes. Recording is optional
// and best-effort; a nil recorder disables it.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Coordinator orchestrates the paste-host and shortener collaborators and
// assembles the human-readable result text for each unit of work. Every
// collaborator failure is converted to a user-visible reply line here;
// nothing escapes past the handler boundary.
type Coordinator struct {
	uploader  domain.Uploader
	shortener domain.Shortener
	files     domain.FileSource
	reporter  *Reporter
	history   HistoryRecorder
	logger    *slog.Logger
}

type CoordinatorConfig struct {
	Uploader  domain.Uploader
	Shortener domain.Shortener
	Files     domain.FileSource
	Reporter  *Reporter
	History   HistoryRecorder
	Logger    *slog.Logger
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		uploader:  cfg.Uploader,
		shortener: cfg.Shortener,
		files:     cfg.Files,
		reporter:  cfg.Reporter,
		history:   cfg.History,
		logger:    cfg.Logger,
	}
}

// Process is the deferred queue handler. One call consumes exactly one
// WorkContext and produces one reply per logical unit of work: one for a
// paste, one per URL in a link-set, one per attachment in a file-set.
func (c *Coordinator) Process(ctx context.Context, wc WorkContext) {
	switch wc.Kind {
	case KindPasteText, KindPasteNamed, KindPasteImage:
		c.processPaste(ctx, wc)
	case KindLinkSet:
		c.processLinks(ctx, wc)
	case KindFileSet:
		c.processFiles(ctx, wc)
	default:
		c.logger.Error("unknown work kind", "kind", wc.Kind)
	}
}

func (c *Coordinator) processPaste(ctx context.Context, wc WorkContext) {
	start := time.Now()
	hosted, err := c.uploader.UploadPaste(ctx, wc.Content, wc.FileName, wc.AsImage)
	metrics.UploadLatency.Observe(time.Since(start).Seconds())

	text, short, ok := c.composeUpload(ctx, "Paste", "paste", hosted, err)
	c.reporter.Reply(wc.Channel, wc.ChatID, wc.MessageID, text)

	source := wc.FileName
	if source == "" {
		source = truncate(wc.Content, 48)
	}
	c.record(ctx, wc.Kind, source, hosted, short, outcomeOf(ok))
}

func (c *Coordinator) processLinks(ctx context.Context, wc WorkContext) {
	for _, ent := range wc.Entities {
		target := ent.ResolveURL(wc.Text)
		if target == "" {
			c.logger.Warn("entity span outside message text",
				"offset", ent.Offset, "length", ent.Length)
			continue
		}

		var text string
		short, err := c.shorten(ctx, target)
		if err != nil || short == "" {
			text = "Could not create shorturl for " + target
			c.record(ctx, wc.Kind, target, "", "", history.OutcomeFailed)
		} else {
			text = "Shorturl " + short + " created for " + target
			c.record(ctx, wc.Kind, target, target, short, history.OutcomeOK)
		}
		c.reporter.Reply(wc.Channel, wc.ChatID, wc.MessageID, text)
	}
}

func (c *Coordinator) processFiles(ctx context.Context, wc WorkContext) {
	// Each attachment is independent: a failed upload never blocks or
	// skips the remaining items of the same message.
	for _, att := range wc.Attachments {
		text := c.processOneFile(ctx, wc, att)
		c.reporter.Reply(wc.Channel, wc.ChatID, wc.MessageID, text)
	}
}

func (c *Coordinator) processOneFile(ctx context.Context, wc WorkContext, att domain.Attachment) string {
	if !att.Kind.Uploadable() {
		c.logger.Warn("unsupported attachment kind", "kind", att.Kind, "file_id", att.FileID)
		c.record(ctx, wc.Kind, att.FileName, "", "", history.OutcomeUnsupported)
		return "Unsupported file type"
	}
	if c.files == nil {
		c.logger.Warn("no file source configured, cannot fetch attachment", "file_id", att.FileID)
		metrics.UploadFailures.Inc()
		c.record(ctx, wc.Kind, att.FileName, "", "", history.OutcomeFailed)
		return "Could not upload file"
	}

	body, remotePath, err := c.files.Open(ctx, att.FileID)
	if err != nil {
		c.logger.Warn("cannot fetch attachment", "file_id", att.FileID, "err", err)
		metrics.UploadFailures.Inc()
		c.record(ctx, wc.Kind, att.FileName, "", "", history.OutcomeFailed)
		return "Could not upload file"
	}
	defer body.Close()

	// Documents declare their own name; everything else is named after
	// the last component of the resolved storage path.
	name := att.FileName
	if name == "" {
		name = path.Base(remotePath)
	}

	start := time.Now()
	hosted, uerr := c.uploader.UploadFile(ctx, body, name)
	metrics.UploadLatency.Observe(time.Since(start).Seconds())

	text, short, ok := c.composeUpload(ctx, "File", "file", hosted, uerr)
	c.record(ctx, wc.Kind, name, hosted, short, outcomeOf(ok))
	return text
}

// composeUpload applies the layered fallback text assembly shared by paste
// and file results: upload line first, then a best-effort shortlink line.
// A shortener failure never turns a reported upload success into a failure.
func (c *Coordinator) composeUpload(ctx context.Context, label, noun, hostedURL string, err error) (text, short string, ok bool) {
	if err != nil || hostedURL == "" {
		c.logger.Warn("upload failed", "kind", noun, "err", err)
		metrics.UploadFailures.Inc()
		return "Could not upload " + noun, "", false
	}
	metrics.UploadsTotal.Inc()

	text = label + " uploaded to " + hostedURL
	short, serr := c.shorten(ctx, hostedURL)
	if serr != nil || short == "" {
		return text, "", true
	}
	return text + "\nShorturl: " + short, short, true
}

func (c *Coordinator) shorten(ctx context.Context, longURL string) (string, error) {
	if c.shortener == nil {
		return "", nil
	}
	short, err := c.shortener.Shorten(ctx, longURL)
	if err != nil || short == "" {
		c.logger.Warn("shorten failed", "url", longURL, "err", err)
		metrics.ShortenFailures.Inc()
		return "", err
	}
	metrics.ShortensTotal.Inc()
	return short, nil
}

func (c *Coordinator) record(ctx context.Context, kind Kind, source, url, short, outcome string) {
	if c.history == nil {
		return
	}
	err := c.history.Record(ctx, history.Entry{
		Kind:     string(kind),
		Source:   source,
		URL:      url,
		ShortURL: short,
		Outcome:  outcome,
	})
	if err != nil {
		c.logger.Warn("history record failed", "err", err)
	}
}

func outcomeOf(ok bool) string {
	if ok {
		return history.OutcomeOK
	}
	return history.OutcomeFailed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
