package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveService defines the interface for Google Drive API operations
// This allows mocking the Google Drive API in tests
type DriveService interface {
	ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error)
	GetFile(ctx context.Context, fileID string, fields string) (*drive.File, error)
	CreateFolder(ctx context.Context, name, parentID string) (*drive.File, error)
	UploadFile(ctx context.Context, name, parentID, mimeType string, data []byte) (*drive.File, error)
	UpdateFile(ctx context.Context, fileID, mimeType string, data []byte) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error
}

// GoogleDriveService is the production implementation using the Google Drive API
type GoogleDriveService struct {
	service *drive.Service
}

// ListFiles lists files matching the query
func (s *GoogleDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error) {
	r, err := s.service.Files.List().
		Q(query).
		Fields(googleapi.Field("files(" + fields + ")")).
		OrderBy(orderBy).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return r.Files, nil
}

// GetFile fetches one file's metadata
func (s *GoogleDriveService) GetFile(ctx context.Context, fileID string, fields string) (*drive.File, error) {
	return s.service.Files.Get(fileID).
		Fields(googleapi.Field(fields)).
		Context(ctx).
		Do()
}

// CreateFolder creates a folder below the given parent
func (s *GoogleDriveService) CreateFolder(ctx context.Context, name, parentID string) (*drive.File, error) {
	return s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id, name").Context(ctx).Do()
}

// UploadFile creates a file with the given content below the parent folder
func (s *GoogleDriveService) UploadFile(ctx context.Context, name, parentID, mimeType string, data []byte) (*drive.File, error) {
	return s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{parentID},
	}).Media(bytes.NewReader(data)).Fields("id, name, size").Context(ctx).Do()
}

// UpdateFile replaces an existing file's content
func (s *GoogleDriveService) UpdateFile(ctx context.Context, fileID, mimeType string, data []byte) (*drive.File, error) {
	return s.service.Files.Update(fileID, &drive.File{MimeType: mimeType}).
		Media(bytes.NewReader(data)).
		Fields("id, name, size").
		Context(ctx).
		Do()
}

// DownloadFile fetches a file's content
func (s *GoogleDriveService) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// CreatePermission adds a permission to a file
func (s *GoogleDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	_, err := s.service.Permissions.Create(fileID, permission).Context(ctx).Do()
	return err
}

// Gateway implements storage.Gateway on top of Google Drive. Slash-separated
// object paths map to nested folders below a configured root folder.
type Gateway struct {
	service      DriveService
	rootFolderID string

	mu      sync.Mutex
	folders map[string]string // resolved folder path -> folder id
}

// GatewayOption is a functional option for configuring Gateway
type GatewayOption func(*Gateway)

// WithDriveService sets a custom drive service (for testing)
func WithDriveService(svc DriveService) GatewayOption {
	return func(g *Gateway) {
		g.service = svc
	}
}

// NewGateway creates a Drive-backed storage gateway below rootFolderID.
// If no custom drive service was provided, OAuth user credentials are used.
func NewGateway(ctx context.Context, credentialsPath, tokenPath, rootFolderID string, opts ...GatewayOption) (*Gateway, error) {
	if rootFolderID == "" {
		return nil, fmt.Errorf("drive root folder ID is required")
	}

	g := &Gateway{
		rootFolderID: rootFolderID,
		folders:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.service == nil {
		svc, err := newOAuthDriveService(ctx, OAuthConfig{
			CredentialsFile: credentialsPath,
			TokenFile:       tokenPath,
		})
		if err != nil {
			return nil, err
		}
		g.service = svc
	}

	return g, nil
}

// SignURL implements storage.Gateway. The file is shared anyone-with-link
// and its download link returned. Drive links carry no expiry, so ttl is
// unused.
func (g *Gateway) SignURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	file, err := g.findFile(ctx, path)
	if err != nil {
		return "", err
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if err := g.service.CreatePermission(ctx, file.Id, perm); err != nil {
		return "", fmt.Errorf("sharing %q: %w", path, err)
	}

	shared, err := g.service.GetFile(ctx, file.Id, "id, webContentLink")
	if err != nil {
		return "", fmt.Errorf("fetching link for %q: %w", path, err)
	}
	if shared.WebContentLink != "" {
		return shared.WebContentLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", file.Id), nil
}

// Download implements storage.Gateway
func (g *Gateway) Download(ctx context.Context, path string) ([]byte, error) {
	file, err := g.findFile(ctx, path)
	if err != nil {
		return nil, err
	}

	data, err := g.service.DownloadFile(ctx, file.Id)
	if err != nil {
		return nil, fmt.Errorf("downloading %q: %w", path, err)
	}
	return data, nil
}

// Upload implements storage.Gateway. Intermediate folders are created as
// needed. Drive has no per-object cache headers, so CacheControl is unused.
func (g *Gateway) Upload(ctx context.Context, path string, data []byte, opts storage.UploadOptions) error {
	dirs, name := splitObjectPath(path)

	folderID, err := g.resolveFolder(ctx, dirs, true)
	if err != nil {
		return err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	existing, err := g.findInFolder(ctx, folderID, name, false)
	if err != nil {
		return err
	}

	if existing != nil {
		if !opts.Upsert {
			return fmt.Errorf("object %q already exists", path)
		}
		if _, err := g.service.UpdateFile(ctx, existing.Id, contentType, data); err != nil {
			return fmt.Errorf("updating %q: %w", path, err)
		}
		return nil
	}

	if _, err := g.service.UploadFile(ctx, name, folderID, contentType, data); err != nil {
		return fmt.Errorf("uploading %q: %w", path, err)
	}
	return nil
}

// List implements storage.Gateway. A prefix whose folder does not exist
// lists as empty rather than failing.
func (g *Gateway) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	dirs := strings.Split(strings.Trim(prefix, "/"), "/")

	folderID, err := g.resolveFolder(ctx, dirs, false)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return nil, nil
	}

	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", folderID, folderMimeType)
	files, err := g.service.ListFiles(ctx, query, "id, name, size, modifiedTime", "name")
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}

	objects := make([]storage.ObjectInfo, 0, len(files))
	for _, f := range files {
		objects = append(objects, storage.ObjectInfo{
			Name:      f.Name,
			Size:      f.Size,
			UpdatedAt: parseTime(f.ModifiedTime),
		})
	}
	return objects, nil
}

// resolveFolder walks the folder chain below the root, creating missing
// segments when create is set. Returns "" when a segment is absent and
// create is false.
func (g *Gateway) resolveFolder(ctx context.Context, dirs []string, create bool) (string, error) {
	parentID := g.rootFolderID
	walked := make([]string, 0, len(dirs))

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		walked = append(walked, dir)
		cacheKey := strings.Join(walked, "/")

		g.mu.Lock()
		cached, ok := g.folders[cacheKey]
		g.mu.Unlock()
		if ok {
			parentID = cached
			continue
		}

		folder, err := g.findInFolder(ctx, parentID, dir, true)
		if err != nil {
			return "", err
		}
		if folder == nil {
			if !create {
				return "", nil
			}
			folder, err = g.service.CreateFolder(ctx, dir, parentID)
			if err != nil {
				return "", fmt.Errorf("creating folder %q: %w", cacheKey, err)
			}
		}

		g.mu.Lock()
		g.folders[cacheKey] = folder.Id
		g.mu.Unlock()
		parentID = folder.Id
	}

	return parentID, nil
}

// findInFolder looks a child up by name, constrained to folders or files
func (g *Gateway) findInFolder(ctx context.Context, parentID, name string, folder bool) (*drive.File, error) {
	mimeClause := fmt.Sprintf("mimeType != '%s'", folderMimeType)
	if folder {
		mimeClause = fmt.Sprintf("mimeType = '%s'", folderMimeType)
	}
	query := fmt.Sprintf("name = '%s' and '%s' in parents and %s and trashed = false",
		escapeQueryValue(name), parentID, mimeClause)

	files, err := g.service.ListFiles(ctx, query, "id, name, size, modifiedTime, webContentLink", "name")
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", name, err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

func (g *Gateway) findFile(ctx context.Context, path string) (*drive.File, error) {
	dirs, name := splitObjectPath(path)

	folderID, err := g.resolveFolder(ctx, dirs, false)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return nil, fmt.Errorf("object %q not found", path)
	}

	file, err := g.findInFolder(ctx, folderID, name, false)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("object %q not found", path)
	}
	return file, nil
}

func splitObjectPath(path string) (dirs []string, name string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return nil, ""
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

// parseTime parses a Google Drive timestamp string
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure Gateway implements storage.Gateway
var _ storage.Gateway = (*Gateway)(nil)
