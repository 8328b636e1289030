package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const payload = `var documenterSearchIndex = {"docs":[{"location":"#Foo","page":"api","title":"Foo","text":"Foo is a type.","category":"type"}]}`

func retryCfg() config.SourceConfig {
	return config.SourceConfig{
		LoadTimeout:   time.Second,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}
}

func TestFileLoadsSampleArtifact(t *testing.T) {
	src := &File{Path: filepath.Join("..", "testdata", "search_index.js")}
	entries, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.Equal(t, "file:"+src.Path, src.Name())
}

func TestFileMissingIsUnavailable(t *testing.T) {
	_, err := (&File{Path: filepath.Join(t.TempDir(), "nope.js")}).Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeS3 struct {
	body string
	err  error
	in   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Load(t *testing.T) {
	client := &fakeS3{body: payload}
	src := &S3{Client: client, Bucket: "docs", Key: "v1/search_index.js"}
	entries, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "#Foo", entries[0].Location)
	assert.Equal(t, "docs", *client.in.Bucket)
	assert.Equal(t, "v1/search_index.js", *client.in.Key)
	assert.Equal(t, "s3://docs/v1/search_index.js", src.Name())
}

func TestS3Errors(t *testing.T) {
	src := &S3{Client: &fakeS3{err: &types.NoSuchKey{}}, Bucket: "docs", Key: "missing"}
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)

	src = &S3{Client: &fakeS3{body: "garbage"}, Bucket: "docs", Key: "bad"}
	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

type flakySource struct {
	failures int
	calls    int
	err      error
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Load(context.Context) ([]entry.Entry, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []entry.Entry{{Location: "#a", Title: "a"}}, nil
}

func TestLoadWithRetryRecovers(t *testing.T) {
	src := &flakySource{failures: 2, err: apperrors.ErrSourceUnavailable}
	entries, err := LoadWithRetry(context.Background(), src, retryCfg())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, src.calls)
}

func TestLoadWithRetryGivesUp(t *testing.T) {
	src := &flakySource{failures: 10, err: apperrors.ErrSourceUnavailable}
	_, err := LoadWithRetry(context.Background(), src, retryCfg())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Equal(t, 3, src.calls)
}

func TestLoadWithRetryDoesNotRetryMalformed(t *testing.T) {
	src := &flakySource{failures: 10, err: apperrors.ErrInvalidInput}
	_, err := LoadWithRetry(context.Background(), src, retryCfg())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, src.calls)
}

// stallingSource ignores cancellation on its first call and answers late
// with a stale list.
type stallingSource struct {
	calls   atomic.Int32
	stalled chan struct{}
}

func (s *stallingSource) Name() string { return "stalling" }

func (s *stallingSource) Load(context.Context) ([]entry.Entry, error) {
	if s.calls.Add(1) == 1 {
		time.Sleep(40 * time.Millisecond)
		defer close(s.stalled)
		return []entry.Entry{{Location: "#stale", Title: "stale"}}, nil
	}
	return []entry.Entry{{Location: "#fresh", Title: "fresh"}}, nil
}

func TestLoadWithRetryIgnoresTimedOutAttempt(t *testing.T) {
	src := &stallingSource{stalled: make(chan struct{})}
	cfg := retryCfg()
	cfg.LoadTimeout = 10 * time.Millisecond

	entries, err := LoadWithRetry(context.Background(), src, cfg)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "#fresh", entries[0].Location)

	<-src.stalled
	assert.Equal(t, "#fresh", entries[0].Location)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestLoadWithRetryFileAppearsLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_index.js")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte(payload), 0o644)
	}()
	cfg := retryCfg()
	cfg.RetryAttempts = 10
	cfg.RetryBackoff = 20 * time.Millisecond
	entries, err := LoadWithRetry(context.Background(), &File{Path: path}, cfg)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewSelectsKind(t *testing.T) {
	src, err := New(context.Background(), config.SourceConfig{Kind: "file", Path: "x.js"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, src)

	_, err = New(context.Background(), config.SourceConfig{Kind: "postgres", Table: "t"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New(context.Background(), config.SourceConfig{Kind: "ftp"}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
