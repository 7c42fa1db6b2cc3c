package domain

import (
	"context"
	"io"
)

// Uploader is the paste-host collaborator. Both calls are opaque remote
// operations: a returned URL means success, any error means the upload
// did not happen. There are no partial outcomes and no retries.
type Uploader interface {
	// UploadPaste hosts text content, optionally under a caller-supplied
	// filename, optionally rendered as an image by the host.
	UploadPaste(ctx context.Context, content, filename string, asImage bool) (string, error)
	// UploadFile hosts an attachment body under the given filename.
	UploadFile(ctx context.Context, body io.Reader, filename string) (string, error)
}

// Shortener is the link-shortening collaborator.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// FileSource resolves a transport file ID into a readable stream plus the
// remote storage path it was fetched from (used to derive a filename when
// the attachment did not declare one).
type FileSource interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}
