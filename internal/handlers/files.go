package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/filesummary/internal/media"
	"github.com/memohai/filesummary/internal/summary"
)

// FileStore is the subset of media.Service the files API needs.
type FileStore interface {
	List(ctx context.Context) ([]media.Entry, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PathOf(key string) string
}

// FileSummarizer summarizes a stored file by path.
type FileSummarizer interface {
	SummarizeFile(ctx context.Context, path string) (string, error)
}

// FileListResponse is the response for GET /api/files.
type FileListResponse struct {
	Entries []media.Entry `json:"entries"`
}

// FileSummaryResponse is the response for POST /api/files/:key/summary.
type FileSummaryResponse struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// FilesHandler exposes downloaded attachments. A non-empty token is required
// as "Authorization: Bearer <token>" on every route.
type FilesHandler struct {
	store      FileStore
	summarizer FileSummarizer
	token      string
	logger     *slog.Logger
}

func NewFilesHandler(log *slog.Logger, store FileStore, summarizer FileSummarizer, token string) *FilesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FilesHandler{
		store:      store,
		summarizer: summarizer,
		token:      strings.TrimSpace(token),
		logger:     log.With(slog.String("handler", "files")),
	}
}

func (h *FilesHandler) Register(e *echo.Echo) {
	g := e.Group("/api/files")
	if h.token != "" {
		g.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup:  "header:" + echo.HeaderAuthorization,
			AuthScheme: "Bearer",
			Validator: func(key string, _ echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(h.token)) == 1, nil
			},
			ErrorHandler: func(err error, c echo.Context) error {
				h.logger.Warn("files api unauthorized", slog.String("remote", c.RealIP()), slog.Any("error", err))
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			},
		}))
	}
	g.GET("", h.List)
	g.GET("/:key", h.Download)
	g.DELETE("/:key", h.Delete)
	g.POST("/:key/summary", h.Summarize)
}

func (h *FilesHandler) List(c echo.Context) error {
	entries, err := h.store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list files failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, FileListResponse{Entries: entries})
}

func (h *FilesHandler) Download(c echo.Context) error {
	key, err := fileKey(c)
	if err != nil {
		return err
	}
	rc, err := h.store.Open(c.Request().Context(), key)
	if err != nil {
		return storeError(err)
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(key, `"`, "_")+`"`)
	return c.Stream(http.StatusOK, media.MimeByPath(key), rc)
}

func (h *FilesHandler) Delete(c echo.Context) error {
	key, err := fileKey(c)
	if err != nil {
		return err
	}
	if err := h.store.Delete(c.Request().Context(), key); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Summarize runs the summarizer again on a stored file.
func (h *FilesHandler) Summarize(c echo.Context) error {
	key, err := fileKey(c)
	if err != nil {
		return err
	}
	path := h.store.PathOf(key)
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file key")
	}
	text, err := h.summarizer.SummarizeFile(c.Request().Context(), path)
	if err != nil {
		var apiErr *summary.APIError
		switch {
		case errors.Is(err, summary.ErrDisabled):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "summarization disabled")
		case errors.Is(err, media.ErrAssetNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		case errors.Is(err, media.ErrAssetTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
		case errors.As(err, &apiErr):
			return echo.NewHTTPError(http.StatusBadGateway, "ai endpoint rejected the request")
		default:
			h.logger.Error("summarize stored file failed", slog.String("key", key), slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadGateway, "summarize failed")
		}
	}
	return c.JSON(http.StatusOK, FileSummaryResponse{Key: key, Summary: text})
}

func fileKey(c echo.Context) (string, error) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "file key is required")
	}
	return key, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, media.ErrAssetNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	case errors.Is(err, media.ErrPathTraversal):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file key")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "storage error")
	}
}
