package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/garyjia/voucher-sync/internal/application/port"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	pdfMimeType    = "application/pdf"
	defaultRole    = "writer"
)

// DriveStore implements port.DocumentStore and port.ResourceSharer on Drive
type DriveStore struct {
	svc       *drive.Service
	timeout   time.Duration
	shareRole string
	logger    *zap.Logger
}

// NewDriveStore creates a new DriveStore. An empty shareRole grants writer.
func NewDriveStore(svc *drive.Service, timeout time.Duration, shareRole string, logger *zap.Logger) *DriveStore {
	if shareRole == "" {
		shareRole = defaultRole
	}
	return &DriveStore{
		svc:       svc,
		timeout:   timeout,
		shareRole: shareRole,
		logger:    logger,
	}
}

// CreateFolder creates a top-level folder and returns its id
func (d *DriveStore) CreateFolder(ctx context.Context, name string) (string, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	folder, err := d.svc.Files.Create(&drive.File{Name: name, MimeType: folderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		d.logger.Error("Failed to create folder", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	d.logger.Info("Folder created", zap.String("name", name), zap.String("folder_id", folder.Id))
	return folder.Id, nil
}

// Upload stores content as a PDF inside parentID
func (d *DriveStore) Upload(ctx context.Context, name, parentID string, content io.Reader) (*port.UploadedDocument, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	file := &drive.File{Name: name, MimeType: pdfMimeType}
	if parentID != "" {
		file.Parents = []string{parentID}
	}

	created, err := d.svc.Files.Create(file).
		Media(content, googleapi.ContentType(pdfMimeType)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	d.logger.Info("Document uploaded", zap.String("name", name), zap.String("document_id", created.Id))
	return &port.UploadedDocument{ID: created.Id, Link: created.WebViewLink}, nil
}

// Delete removes a file. A file that is already gone is not an error.
func (d *DriveStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	err := d.svc.Files.Delete(id).Context(ctx).Do()
	if isNotFound(err) {
		d.logger.Info("Document already deleted", zap.String("document_id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// Share grants email the configured role on a file, folder or spreadsheet
func (d *DriveStore) Share(ctx context.Context, resourceID, email string) error {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	perm := &drive.Permission{
		Type:         "user",
		Role:         d.shareRole,
		EmailAddress: email,
	}
	_, err := d.svc.Permissions.Create(resourceID, perm).
		SendNotificationEmail(false).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to share %s with %s: %w", resourceID, email, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Verify interface compliance
var (
	_ port.DocumentStore  = (*DriveStore)(nil)
	_ port.ResourceSharer = (*DriveStore)(nil)
)
