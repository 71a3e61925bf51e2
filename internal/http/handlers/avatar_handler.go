// README: Avatar upload handler (multipart "avatar" field) and the local object passthrough.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"semas/internal/http/middleware"
	"semas/internal/modules/avatar"
)

type AvatarHandler struct {
	avatars *avatar.Service
	local   *avatar.MemoryStore
}

// NewAvatarHandler; local is nil when objects live in S3.
func NewAvatarHandler(svc *avatar.Service, local *avatar.MemoryStore) *AvatarHandler {
	return &AvatarHandler{avatars: svc, local: local}
}

func (h *AvatarHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "No file uploaded", "code": "NO_FILE"})
		return
	}
	if err := h.avatars.Validate(fh.Filename, fh.Size); err != nil {
		writeUploadError(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeInternal(c, err)
		return
	}
	defer f.Close()

	_, s, _ := middleware.CallerSession(c)
	u, err := h.avatars.Upload(c.Request.Context(), s, fh.Filename, fh.Size, f)
	if err != nil {
		writeUploadError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// Object serves avatars held by the in-memory store.
func (h *AvatarHandler) Object(c *gin.Context) {
	if h.local == nil {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	ct, body, ok := h.local.Object(key)
	if !ok {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	c.Data(http.StatusOK, ct, body)
}

func writeUploadError(c *gin.Context, err error) {
	var ue *avatar.UploadError
	if errors.As(err, &ue) {
		status := http.StatusBadRequest
		if ue.Code == "FILE_TOO_LARGE" {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(c, status, gin.H{"error": ue.Message, "code": ue.Code})
		return
	}
	writeSessionError(c, err)
}
