package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Upload limits.
const (
	MaxMediaPerPost = 4
	MaxImageBytes   = 10 << 20
	MaxVideoBytes   = 100 << 20
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// MediaHandler uploads post attachments to object storage.
type MediaHandler struct {
	store  repositories.MediaStore
	logger *zap.Logger
	now    func() time.Time
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(store repositories.MediaStore, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger, now: time.Now}
}

// RegisterMediaRoutes registers media routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/media", h.Upload)
}

// UploadedMedia is one stored attachment.
type UploadedMedia struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Upload stores up to four images or videos sent as multipart "files" and returns
// their download URLs in order.
func (h *MediaHandler) Upload(c echo.Context) error {
	s, err := session.Require(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Expected a multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No files uploaded")
	}
	if len(files) > MaxMediaPerPost {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("At most %d files per post", MaxMediaPerPost))
	}

	out := make([]UploadedMedia, 0, len(files))
	for _, fh := range files {
		objectPath := path.Join("posts", s.UserID, fmt.Sprintf("%d_%s", h.now().UnixMilli(), safeName(fh.Filename)))
		m, err := uploadFile(c, h.store, h.logger, fh, objectPath, true)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	return respond(c, http.StatusCreated, out)
}

// uploadFile sniffs and uploads one file. Videos are accepted only when allowVideo is set.
func uploadFile(c echo.Context, store repositories.MediaStore, logger *zap.Logger, fh *multipart.FileHeader, objectPath string, allowVideo bool) (UploadedMedia, error) {
	f, err := fh.Open()
	if err != nil {
		return UploadedMedia{}, echo.NewHTTPError(http.StatusBadRequest, "Unreadable file "+fh.Filename)
	}
	defer f.Close()

	kind, contentType, err := sniffMedia(f)
	if err != nil {
		return UploadedMedia{}, echo.NewHTTPError(http.StatusBadRequest, "Unreadable file "+fh.Filename)
	}
	switch {
	case kind == "":
		return UploadedMedia{}, echo.NewHTTPError(http.StatusBadRequest, fh.Filename+" is not an image or video")
	case kind == models.MediaVideo && !allowVideo:
		return UploadedMedia{}, echo.NewHTTPError(http.StatusBadRequest, fh.Filename+" is not an image")
	case kind == models.MediaImage && fh.Size > MaxImageBytes,
		kind == models.MediaVideo && fh.Size > MaxVideoBytes:
		return UploadedMedia{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fh.Filename+" is too large")
	}

	url, err := store.Upload(c.Request().Context(), objectPath, contentType, f)
	if err != nil {
		logger.Error("media upload failed", zap.String("path", objectPath), zap.Error(err))
		return UploadedMedia{}, echo.NewHTTPError(http.StatusBadGateway, "Upload failed")
	}
	return UploadedMedia{URL: url, Type: kind}, nil
}

// sniffMedia detects the content type from the leading bytes and rewinds f. kind is
// empty for anything other than an image or a video.
func sniffMedia(f io.ReadSeeker) (kind, contentType string, err error) {
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	contentType = mt.String()
	switch {
	case strings.HasPrefix(contentType, "image/"):
		kind = models.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		kind = models.MediaVideo
	}
	return kind, contentType, nil
}

func safeName(name string) string {
	name = unsafeName.ReplaceAllString(path.Base(name), "_")
	if name == "" || name == "." || name == "_" {
		return "upload"
	}
	return name
}
