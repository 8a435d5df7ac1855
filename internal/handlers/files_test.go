package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/filesummary/internal/media"
	"github.com/memohai/filesummary/internal/media/providers/localfs"
	"github.com/memohai/filesummary/internal/summary"
)

type stubSummarizer struct {
	paths []string
	err   error
}

func (s *stubSummarizer) SummarizeFile(_ context.Context, path string) (string, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return "", s.err
	}
	return "摘要: " + filepath.Base(path), nil
}

func newFilesEcho(t *testing.T, sum FileSummarizer) (*echo.Echo, string) {
	t.Helper()
	return newFilesEchoWithToken(t, sum, "")
}

func newFilesEchoWithToken(t *testing.T, sum FileSummarizer, token string) (*echo.Echo, string) {
	t.Helper()
	dir := t.TempDir()
	provider, err := localfs.New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Report.pdf"), []byte("%PDF-1.7"), 0o644))
	e := echo.New()
	NewFilesHandler(nil, media.NewService(nil, provider, media.CollisionSuffix), sum, token).Register(e)
	return e, dir
}

func TestFilesHandlerListAndDownload(t *testing.T) {
	t.Parallel()

	e, _ := newFilesEcho(t, &stubSummarizer{})

	rec := serve(e, http.MethodGet, "/api/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list FileListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "Report.pdf", list.Entries[0].Key)
	assert.Equal(t, int64(8), list.Entries[0].SizeBytes)

	rec = serve(e, http.MethodGet, "/api/files/Report.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))

	rec = serve(e, http.MethodGet, "/api/files/missing.pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilesHandlerDelete(t *testing.T) {
	t.Parallel()

	e, dir := newFilesEcho(t, &stubSummarizer{})

	rec := serve(e, http.MethodDelete, "/api/files/Report.pdf", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoFileExists(t, filepath.Join(dir, "Report.pdf"))
}

func TestFilesHandlerSummarize(t *testing.T) {
	t.Parallel()

	sum := &stubSummarizer{}
	e, dir := newFilesEcho(t, sum)

	rec := serve(e, http.MethodPost, "/api/files/Report.pdf/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got FileSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "摘要: Report.pdf", got.Summary)
	require.Len(t, sum.paths, 1)
	assert.Equal(t, filepath.Join(dir, "Report.pdf"), sum.paths[0])

	rec = serve(e, http.MethodPost, "/api/files/../summary", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestFilesHandlerSummarizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "disabled", err: summary.ErrDisabled, want: http.StatusServiceUnavailable},
		{name: "api", err: &summary.APIError{StatusCode: 500, Body: "boom"}, want: http.StatusBadGateway},
		{name: "parse", err: summary.ErrParse, want: http.StatusBadGateway},
		{name: "transport", err: fmt.Errorf("%w: dial tcp: connection refused", summary.ErrTransport), want: http.StatusBadGateway},
		{name: "missing", err: fmt.Errorf("%w: read x: %w", summary.ErrTransport, media.ErrAssetNotFound), want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newFilesEcho(t, &stubSummarizer{err: tt.err})
			rec := serve(e, http.MethodPost, "/api/files/Report.pdf/summary", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFilesHandlerSummarizeUnreachableAI(t *testing.T) {
	t.Parallel()

	ai := httptest.NewServer(http.NotFoundHandler())
	aiURL := ai.URL
	ai.Close()
	client := summary.NewClient(nil, summary.NewOpenAI(nil, &http.Client{Timeout: 2 * time.Second}, summary.OpenAIConfig{
		BaseURL: aiURL + "/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o",
		Timeout: 2 * time.Second,
	}))
	e, _ := newFilesEcho(t, client)

	rec := serve(e, http.MethodPost, "/api/files/Report.pdf/summary", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(e, http.MethodPost, "/api/files/missing.pdf/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilesHandlerRequiresToken(t *testing.T) {
	t.Parallel()

	e, dir := newFilesEchoWithToken(t, &stubSummarizer{}, "s3cret")

	rec := serve(e, http.MethodGet, "/api/files", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/files/Report.pdf", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.FileExists(t, filepath.Join(dir, "Report.pdf"))

	req = httptest.NewRequest(http.MethodGet, "/api/files/Report.pdf", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer s3cret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
}
