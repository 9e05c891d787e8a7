package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)

type stubProvider struct {
	name  string
	url   string
	err   error
	calls int
	got   File
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Upload(_ context.Context, f File) (string, error) {
	s.calls++
	s.got = f
	return s.url, s.err
}

func TestUploaderUsesPrimary(t *testing.T) {
	primary := &stubProvider{name: "r2", url: "https://cdn.example.com/a.png"}
	secondary := &stubProvider{name: "image_host", url: "https://i.example.com/b.png"}

	res := NewUploader(primary, secondary).Upload(context.Background(), File{Filename: "a.png", Data: pngBytes})

	up, ok := res.(Uploaded)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/a.png", up.URL)
	assert.Equal(t, "r2", up.Provider)
	assert.Equal(t, "image/png", primary.got.ContentType)
	assert.Equal(t, 0, secondary.calls)
}

func TestUploaderFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "r2", err: errors.New("bucket down")}
	secondary := &stubProvider{name: "image_host", url: "https://i.example.com/b.png"}

	res := NewUploader(primary, secondary).Upload(context.Background(), File{Filename: "a.png", Data: pngBytes})

	up, ok := res.(Uploaded)
	require.True(t, ok)
	assert.Equal(t, "image_host", up.Provider)
	assert.Equal(t, 1, primary.calls)
}

func TestUploaderBothFail(t *testing.T) {
	primary := &stubProvider{name: "r2", err: errors.New("bucket down")}
	secondary := &stubProvider{name: "image_host", err: errors.New("quota")}

	res := NewUploader(primary, secondary).Upload(context.Background(), File{Filename: "a.png", Data: pngBytes})

	f, ok := res.(Failed)
	require.True(t, ok)
	assert.Equal(t, "a.png", f.Filename)
	assert.Equal(t, "image/png", f.MimeType)
	assert.Equal(t, int64(len(pngBytes)), f.Size)
	assert.ErrorContains(t, f.Err, "bucket down")
	assert.ErrorContains(t, f.Err, "quota")
}

func TestUploaderRejectsUnsupportedType(t *testing.T) {
	primary := &stubProvider{name: "r2", url: "https://cdn.example.com/x"}

	res := NewUploader(primary).Upload(context.Background(), File{Filename: "notes.txt", Data: []byte("plain text")})

	f, ok := res.(Failed)
	require.True(t, ok)
	assert.ErrorIs(t, f.Err, ErrUnsupportedType)
	assert.Equal(t, 0, primary.calls)

	res = NewUploader(primary).Upload(context.Background(), File{Filename: "empty.png"})
	assert.ErrorIs(t, res.(Failed).Err, ErrEmptyFile)
}

func TestURLsSkipsFailures(t *testing.T) {
	urls := URLs([]Result{
		Uploaded{URL: "https://a"},
		Failed{Filename: "b.png"},
		Uploaded{URL: "https://c"},
	})
	assert.Equal(t, []string{"https://a", "https://c"}, urls)
}
