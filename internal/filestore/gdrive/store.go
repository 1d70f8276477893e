package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Config holds Google Drive service account configuration
type Config struct {
	ServiceAccountEmail string
	PrivateKey          string
	Scopes              []string
}

// Store is a FileStore backed by the Drive v3 API
type Store struct {
	config *Config
	logger *slog.Logger

	mu      sync.RWMutex
	service *drive.Service
}

// NewStore creates a new Drive store. Authenticate must be called before use.
func NewStore(config *Config, logger *slog.Logger) *Store {
	return &Store{
		config: config,
		logger: logger,
	}
}

// Authenticate exchanges the service account key for a token and builds the Drive client
func (s *Store) Authenticate(ctx context.Context) error {
	if s.config.ServiceAccountEmail == "" || s.config.PrivateKey == "" {
		return domain.ErrMissingCredentials
	}

	scopes := s.config.Scopes
	if len(scopes) == 0 {
		scopes = []string{drive.DriveScope}
	}

	jwtConfig := &jwt.Config{
		Email:      s.config.ServiceAccountEmail,
		PrivateKey: []byte(s.config.PrivateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
	}

	// Refreshes outlive the startup context
	tokenSource := jwtConfig.TokenSource(context.WithoutCancel(ctx))
	if _, err := tokenSource.Token(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return fmt.Errorf("failed to create drive service: %w", err)
	}

	s.mu.Lock()
	s.service = service
	s.mu.Unlock()

	s.logger.Info("Successfully authenticated with Google",
		slog.String("service_account", s.config.ServiceAccountEmail),
	)

	return nil
}

func (s *Store) client() (*drive.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.service == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return s.service, nil
}

// ListEligible returns every file matching filter, excluding trashed files,
// following page tokens until the listing is exhausted
func (s *Store) ListEligible(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error) {
	svc, err := s.client()
	if err != nil {
		return nil, err
	}

	var files []domain.RemoteFile
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(buildQuery(filter)).
			Fields("nextPageToken, files(id, name, mimeType, webViewLink)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if filter.PageSize > 0 {
			call = call.PageSize(int64(filter.PageSize))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list drive files: %w", err)
		}

		for _, f := range list.Files {
			files = append(files, domain.RemoteFile{
				ID:         f.Id,
				Name:       f.Name,
				MimeType:   f.MimeType,
				ContentRef: f.WebViewLink,
			})
		}

		if list.NextPageToken == "" {
			return files, nil
		}
		pageToken = list.NextPageToken
	}
}

// FindFolder returns the first folder named name directly under parentID
func (s *Store) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	svc, err := s.client()
	if err != nil {
		return "", err
	}

	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escape(name), escape(parentID), folderMimeType)

	list, err := svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search folder: %w", err)
	}

	if len(list.Files) == 0 {
		return "", domain.ErrFolderNotFound
	}
	return list.Files[0].Id, nil
}

// CreateFolder creates a folder under parentID
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	svc, err := s.client()
	if err != nil {
		return "", err
	}

	folder, err := svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	return folder.Id, nil
}

// GetParents returns the ids of the folders containing fileID
func (s *Store) GetParents(ctx context.Context, fileID string) ([]string, error) {
	svc, err := s.client()
	if err != nil {
		return nil, err
	}

	f, err := svc.Files.Get(fileID).Fields("parents").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file parents: %w", err)
	}

	return f.Parents, nil
}

// SetParents adds and removes parents of fileID in a single update
func (s *Store) SetParents(ctx context.Context, fileID string, add, remove []string) error {
	svc, err := s.client()
	if err != nil {
		return err
	}

	call := svc.Files.Update(fileID, &drive.File{}).
		Fields("id, parents").
		SupportsAllDrives(true).
		Context(ctx)
	if len(add) > 0 {
		call = call.AddParents(strings.Join(add, ","))
	}
	if len(remove) > 0 {
		call = call.RemoveParents(strings.Join(remove, ","))
	}

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("failed to update file parents: %w", err)
	}

	return nil
}

// Download streams the content of fileID. The caller closes the reader.
func (s *Store) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	svc, err := s.client()
	if err != nil {
		return nil, "", err
	}

	resp, err := svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// buildQuery renders a FileFilter as a Drive search query
func buildQuery(filter domain.FileFilter) string {
	clauses := make([]string, 0, 4)

	if filter.MimeType != "" {
		clauses = append(clauses, fmt.Sprintf("mimeType = '%s'", escape(filter.MimeType)))
	}
	if filter.ParentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escape(filter.ParentID)))
	}
	if filter.ExcludeParentID != "" {
		clauses = append(clauses, fmt.Sprintf("not '%s' in parents", escape(filter.ExcludeParentID)))
	}
	clauses = append(clauses, "trashed = false")

	return strings.Join(clauses, " and ")
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escape(value string) string {
	return queryEscaper.Replace(value)
}
