package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"pastebot/internal/domain"
	"pastebot/internal/history"
)

// fakeBus records outbound messages; inbound side is a plain channel.
type fakeBus struct {
	mu       sync.Mutex
	outbound []domain.OutboundMessage
	inbound  chan domain.InboundMessage
}

func newFakeBus() *fakeBus {
	return &fakeBus{inbound: make(chan domain.InboundMessage, 16)}
}

func (b *fakeBus) Publish(msg domain.InboundMessage)          { b.inbound <- msg }
func (b *fakeBus) Subscribe() <-chan domain.InboundMessage    { return b.inbound }
func (b *fakeBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *fakeBus) Close()                                     {}

func (b *fakeBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbound = append(b.outbound, msg)
}

func (b *fakeBus) sent() []domain.OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.OutboundMessage, len(b.outbound))
	copy(out, b.outbound)
	return out
}

// fakeUploader answers from fixed URLs and records what it was asked.
type fakeUploader struct {
	mu        sync.Mutex
	pasteURL  string
	fileURL   string
	err       error
	failNames map[string]bool // filenames whose upload fails

	gotContent  string
	gotFilename string
	gotAsImage  bool
	fileNames   []string
	fileBodies  []string
}

func (f *fakeUploader) UploadPaste(ctx context.Context, content, filename string, asImage bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotContent = content
	f.gotFilename = filename
	f.gotAsImage = asImage
	if f.err != nil {
		return "", f.err
	}
	return f.pasteURL, nil
}

func (f *fakeUploader) UploadFile(ctx context.Context, body io.Reader, filename string) (string, error) {
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileNames = append(f.fileNames, filename)
	f.fileBodies = append(f.fileBodies, string(data))
	if f.err != nil {
		return "", f.err
	}
	if f.failNames[filename] {
		return "", errors.New("upload rejected")
	}
	return f.fileURL, nil
}

// fakeShortener maps long URLs to short ones; unmapped URLs fail.
type fakeShortener struct {
	mu    sync.Mutex
	short map[string]string
	calls []string
}

func (f *fakeShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, longURL)
	if s, ok := f.short[longURL]; ok {
		return s, nil
	}
	return "", errors.New("shortener unavailable")
}

// fakeFiles resolves file IDs from an in-memory map.
type fakeFiles struct {
	content map[string]string // fileID -> body
	paths   map[string]string // fileID -> remote storage path
}

func (f *fakeFiles) Open(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	body, ok := f.content[fileID]
	if !ok {
		return nil, "", errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(body)), f.paths[fileID], nil
}

// fakeHistory records entries in memory.
type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (f *fakeHistory) Record(ctx context.Context, e history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}
