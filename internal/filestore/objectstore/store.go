// Package objectstore implements the watched file store on an S3 compatible
// bucket. Folders are key prefixes ending in "/", file ids are object keys.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const folderContentType = "application/x-directory"

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store is a FileStore backed by a MinIO bucket
type Store struct {
	config *Config
	logger *slog.Logger

	mu     sync.RWMutex
	client *minio.Client
}

// NewStore creates a new object store. Authenticate must be called before use.
func NewStore(config *Config, logger *slog.Logger) *Store {
	return &Store{
		config: config,
		logger: logger,
	}
}

// Authenticate builds the MinIO client and checks the bucket is reachable
func (s *Store) Authenticate(ctx context.Context) error {
	if s.config.AccessKey == "" || s.config.SecretKey == "" {
		return domain.ErrMissingCredentials
	}

	client, err := minio.New(s.config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.config.AccessKey, s.config.SecretKey, ""),
		Secure: s.config.UseSSL,
		Region: s.config.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.config.Bucket)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.logger.Info("Connected to object store",
		slog.String("endpoint", s.config.Endpoint),
		slog.String("bucket", s.config.Bucket),
	)

	return nil
}

func (s *Store) getClient() (*minio.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return s.client, nil
}

// ListEligible lists every object directly under filter.ParentID. PageSize
// bounds the keys fetched per request, not the result.
func (s *Store) ListEligible(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var files []domain.RemoteFile
	for object := range client.ListObjects(listCtx, s.config.Bucket, minio.ListObjectsOptions{
		Prefix:       dirPrefix(filter.ParentID),
		Recursive:    false,
		WithMetadata: true,
		MaxKeys:      filter.PageSize,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if isFolderKey(object.Key) || excluded(object.Key, dirPrefix(filter.ExcludeParentID)) {
			continue
		}

		contentType := object.ContentType
		if contentType == "" {
			info, err := client.StatObject(ctx, s.config.Bucket, object.Key, minio.StatObjectOptions{})
			if err != nil {
				return nil, fmt.Errorf("failed to stat object: %w", err)
			}
			contentType = info.ContentType
		}
		if filter.MimeType != "" && contentType != filter.MimeType {
			continue
		}

		files = append(files, domain.RemoteFile{
			ID:         object.Key,
			Name:       path.Base(object.Key),
			MimeType:   contentType,
			ContentRef: s.contentRef(object.Key),
		})
	}

	return files, nil
}

// FindFolder returns the prefix for name under parentID if any object lives there
func (s *Store) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	client, err := s.getClient()
	if err != nil {
		return "", err
	}

	prefix := folderPrefix(name, parentID)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range client.ListObjects(listCtx, s.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   1,
	}) {
		if object.Err != nil {
			return "", fmt.Errorf("failed to search folder: %w", object.Err)
		}
		return prefix, nil
	}

	return "", domain.ErrFolderNotFound
}

// CreateFolder writes an empty marker object so the prefix exists
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	client, err := s.getClient()
	if err != nil {
		return "", err
	}

	prefix := folderPrefix(name, parentID)
	_, err = client.PutObject(ctx, s.config.Bucket, prefix, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: folderContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	return prefix, nil
}

// GetParents returns the single prefix containing fileID
func (s *Store) GetParents(ctx context.Context, fileID string) ([]string, error) {
	if _, err := s.getClient(); err != nil {
		return nil, err
	}
	return []string{parentOf(fileID)}, nil
}

// SetParents moves the object under the one added prefix. Objects have a
// single parent, so the key changes and remove is implied.
func (s *Store) SetParents(ctx context.Context, fileID string, add, remove []string) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}

	if len(add) != 1 {
		return fmt.Errorf("object store files have exactly one parent, got %d", len(add))
	}

	dest := movedKey(fileID, add[0])
	if dest == fileID {
		return nil
	}

	_, err = client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.config.Bucket, Object: dest},
		minio.CopySrcOptions{Bucket: s.config.Bucket, Object: fileID},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	if err := client.RemoveObject(ctx, s.config.Bucket, fileID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove source object: %w", err)
	}

	return nil
}

// Download streams fileID. The caller closes the reader.
func (s *Store) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, "", err
	}

	object, err := client.GetObject(ctx, s.config.Bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}

	info, err := object.Stat()
	if err != nil {
		object.Close()
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, "", fmt.Errorf("object %s not found: %w", fileID, err)
		}
		return nil, "", fmt.Errorf("failed to stat object: %w", err)
	}

	return object, info.ContentType, nil
}

func (s *Store) contentRef(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key)
}

func isFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

func excluded(key, excludePrefix string) bool {
	return excludePrefix != "" && strings.HasPrefix(key, excludePrefix)
}

func folderPrefix(name, parentID string) string {
	return dirPrefix(parentID) + strings.Trim(name, "/") + "/"
}

// dirPrefix turns a folder id such as "videos" into the key prefix "videos/".
// The bucket root stays empty.
func dirPrefix(folderID string) string {
	if folderID == "" || strings.HasSuffix(folderID, "/") {
		return folderID
	}
	return folderID + "/"
}

func parentOf(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}

func movedKey(key, destPrefix string) string {
	return destPrefix + path.Base(key)
}
