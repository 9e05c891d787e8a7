// Package media gets user supplied files onto a public host so posts can
// reference them by URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

var (
	ErrUnsupportedType = errors.New("media: unsupported file type")
	ErrEmptyFile       = errors.New("media: empty file")
	ErrNoProviders     = errors.New("media: no upload providers configured")
)

var allowedTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {}, "webm": {},
}

type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Result is either Uploaded or Failed.
type Result interface {
	isResult()
}

type Uploaded struct {
	URL      string
	Provider string
}

// Failed describes a file that no provider accepted. Posts referencing it
// fall back to text only.
type Failed struct {
	Filename string
	MimeType string
	Size     int64
	Err      error
}

func (Uploaded) isResult() {}
func (Failed) isResult()   {}

type Provider interface {
	Name() string
	Upload(ctx context.Context, f File) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, f File) Result
}

type uploader struct {
	providers []Provider
}

// NewUploader tries providers in order until one returns a URL.
func NewUploader(providers ...Provider) Uploader {
	return &uploader{providers: providers}
}

func (u *uploader) Upload(ctx context.Context, f File) Result {
	failed := func(err error) Result {
		slog.Warn("media upload failed", "filename", f.Filename, "size", f.Size(), "error", err)
		return Failed{Filename: f.Filename, MimeType: f.ContentType, Size: f.Size(), Err: err}
	}

	kind, err := detect(f.Data)
	if err != nil {
		return failed(err)
	}
	f.ContentType = kind.MIME.Value

	if len(u.providers) == 0 {
		return failed(ErrNoProviders)
	}

	var errs []error
	for _, p := range u.providers {
		url, err := p.Upload(ctx, f)
		if err == nil && url != "" {
			return Uploaded{URL: url, Provider: p.Name()}
		}
		if err == nil {
			err = errors.New("empty url")
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return failed(errors.Join(errs...))
}

func detect(data []byte) (types.Type, error) {
	if len(data) == 0 {
		return types.Unknown, ErrEmptyFile
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return types.Unknown, ErrUnsupportedType
	}
	if _, ok := allowedTypes[kind.Extension]; !ok {
		return types.Unknown, fmt.Errorf("%w: %s", ErrUnsupportedType, kind.Extension)
	}
	return kind, nil
}

// URLs returns the hosted URLs in order, skipping failed uploads.
func URLs(results []Result) []string {
	var out []string
	for _, r := range results {
		if u, ok := r.(Uploaded); ok {
			out = append(out, u.URL)
		}
	}
	return out
}
