package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArchivedExport describes an export stored in object storage
type ArchivedExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ArchiveService stores rendered exports and hands out download links
type ArchiveService struct {
	store S3Interface
	now   func() time.Time
}

var archiveServiceInstance *ArchiveService

// NewArchiveService creates an ArchiveService on top of store
func NewArchiveService(store S3Interface) *ArchiveService {
	return &ArchiveService{store: store, now: time.Now}
}

// GetArchiveService returns the configured archive, or nil when archiving is disabled
func GetArchiveService() *ArchiveService {
	return archiveServiceInstance
}

// SetArchiveService sets the archive service instance (nil disables archiving)
func SetArchiveService(service *ArchiveService) {
	archiveServiceInstance = service
}

// Archive uploads file under exports/<date>/<uuid>_<filename> and returns a
// presigned link to it. The upload is deleted when no link can be issued.
func (s *ArchiveService) Archive(ctx context.Context, file *ExportFile) (*ArchivedExport, error) {
	now := s.now()
	key := fmt.Sprintf("exports/%s/%s_%s", now.Format("2006/01/02"), uuid.NewString(), file.Filename)

	if err := s.store.UploadObject(ctx, key, file.Data, file.ContentType); err != nil {
		return nil, fmt.Errorf("failed to archive export: %w", err)
	}

	url, err := s.store.GetPresignedURL(ctx, key)
	if err != nil {
		// an object nobody can be linked to is removed again
		if delErr := s.store.DeleteObject(ctx, key); delErr != nil {
			return nil, fmt.Errorf("failed to generate export URL: %w (cleanup of %s failed: %v)", err, key, delErr)
		}
		return nil, fmt.Errorf("failed to generate export URL: %w", err)
	}

	return &ArchivedExport{
		Key:       key,
		URL:       url,
		Filename:  file.Filename,
		Rows:      file.Rows,
		ExpiresAt: now.Add(PresignedURLTTL),
	}, nil
}
