package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

// FolderArchiver archives files by re-parenting them into a named folder
type FolderArchiver struct {
	store      FileStore
	folderName string
	logger     *slog.Logger
}

// NewFolderArchiver creates a new FolderArchiver
func NewFolderArchiver(store FileStore, folderName string, logger *slog.Logger) *FolderArchiver {
	if folderName == "" {
		folderName = domain.DefaultCompletedFolderName
	}
	return &FolderArchiver{
		store:      store,
		folderName: folderName,
		logger:     logger,
	}
}

// EnsureDestination finds the completed folder under parentID, creating it only if absent
func (a *FolderArchiver) EnsureDestination(ctx context.Context, parentID string) (string, error) {
	folderID, err := a.store.FindFolder(ctx, a.folderName, parentID)
	if err == nil {
		a.logger.Info("Using existing completed folder",
			slog.String("folder_id", folderID),
			slog.String("folder_name", a.folderName),
		)
		return folderID, nil
	}
	if !errors.Is(err, domain.ErrFolderNotFound) {
		return "", fmt.Errorf("failed to find completed folder: %w", err)
	}

	folderID, err = a.store.CreateFolder(ctx, a.folderName, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to create completed folder: %w", err)
	}

	a.logger.Info("Created completed folder",
		slog.String("folder_id", folderID),
		slog.String("folder_name", a.folderName),
		slog.String("parent_id", parentID),
	)

	return folderID, nil
}

// Move replaces every current parent of fileID with destinationID in one update
func (a *FolderArchiver) Move(ctx context.Context, fileID, destinationID string) error {
	parents, err := a.store.GetParents(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file parents: %w", err)
	}

	remove := make([]string, 0, len(parents))
	for _, p := range parents {
		if p != destinationID {
			remove = append(remove, p)
		}
	}

	if err := a.store.SetParents(ctx, fileID, []string{destinationID}, remove); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	a.logger.Debug("File archived",
		slog.String("file_id", fileID),
		slog.String("folder_id", destinationID),
	)

	return nil
}
