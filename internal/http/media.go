package http

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// MediaController uploads and serves owned cover images.
type MediaController struct {
	store    CoverStore
	files    MediaFiles
	signer   MediaVerifier
	auth     covers.Authorizer
	maxBytes int64
}

func NewMediaController(store CoverStore, files MediaFiles, signer MediaVerifier, authorizer covers.Authorizer, maxBytes int64) *MediaController {
	if maxBytes <= 0 {
		maxBytes = storage.DefaultMaxUploadBytes
	}
	return &MediaController{
		store:    store,
		files:    files,
		signer:   signer,
		auth:     authorizer,
		maxBytes: maxBytes,
	}
}

// Upload stores a new cover image.
// POST /api/covers/upload
func (mc *MediaController) Upload(c *gin.Context) {
	if mc.auth == nil || !mc.auth.CanOverrideCovers(c.Request.Context()) {
		respondError(c, http.StatusForbidden, "forbidden", covers.ErrOverrideForbidden.Error())
		return
	}

	// Leave room for the multipart envelope.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, mc.maxBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > mc.maxBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", storage.ErrTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	image, err := mc.store.UploadCover(c.Request.Context(), fileHeader.Filename, file)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, storage.ErrNotAnImage), errors.Is(err, storage.ErrInvalidPath):
		respondBadRequest(c, err.Error())
	case err != nil:
		respondInternalError(c, err, "upload cover")
	default:
		respondCreated(c, image)
	}
}

// Serve returns a stored object.
// GET /media/*path
func (mc *MediaController) Serve(c *gin.Context) {
	objectPath := strings.TrimPrefix(c.Param("path"), "/")

	if err := mc.signer.Verify(objectPath, c.Query("token")); err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			respondNotFound(c, "media")
			return
		}
		respondError(c, http.StatusForbidden, "invalid_token", err.Error())
		return
	}

	localPath, err := mc.files.LocalPath(objectPath)
	if err != nil {
		respondNotFound(c, "media")
		return
	}
	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		respondNotFound(c, "media")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.File(localPath)
}
