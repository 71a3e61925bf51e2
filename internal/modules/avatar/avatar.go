// README: Avatar upload; validates the image, stores it, then points the session identity at it.
package avatar

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"semas/internal/modules/directory"
	"semas/internal/modules/session"
)

// DefaultMaxBytes is 5MB.
const DefaultMaxBytes = 5 * 1024 * 1024

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadError is a rejected upload; Code is stable for clients.
type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

// Identity is the session whose avatar is being replaced.
type Identity interface {
	Current() (directory.User, bool)
	UpdateIdentity(ctx context.Context, p session.Patch) (directory.User, error)
}

type Service struct {
	store    ObjectStore
	maxBytes int64
}

func NewService(store ObjectStore, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, maxBytes: maxBytes}
}

// Validate checks the declared size and the file extension.
func (s *Service) Validate(filename string, size int64) error {
	if size > s.maxBytes {
		return &UploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", s.maxBytes/(1024*1024)),
		}
	}
	if _, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; !ok {
		return &UploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .png, .jpg and .jpeg files are allowed",
		}
	}
	return nil
}

// Upload stores the image and updates the session identity's avatar.
func (s *Service) Upload(ctx context.Context, id Identity, filename string, size int64, body io.Reader) (directory.User, error) {
	user, ok := id.Current()
	if !ok {
		return directory.User{}, session.ErrNoSession
	}
	if err := s.Validate(filename, size); err != nil {
		return directory.User{}, err
	}

	// The declared size is client supplied; enforce the limit on the bytes too.
	content, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return directory.User{}, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(content)) > s.maxBytes {
		return directory.User{}, s.Validate(filename, int64(len(content)))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("avatars/%s/%s%s", user.ID, uuid.NewString(), ext)
	url, err := s.store.Put(ctx, key, contentTypes[ext], content)
	if err != nil {
		return directory.User{}, err
	}

	updated, err := id.UpdateIdentity(ctx, session.Patch{Avatar: &url})
	if err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), key)
		return directory.User{}, err
	}
	return updated, nil
}
