package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFolderArchiver_EnsureDestinationIdempotent(t *testing.T) {
	store := newFakeFileStore()
	store.addFolder("src", "Videos", "root")
	archiver := NewFolderArchiver(store, "completed", discardLogger())

	first, err := archiver.EnsureDestination(context.Background(), "src")
	require.NoError(t, err)

	second, err := archiver.EnsureDestination(context.Background(), "src")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.foldersCreated)
}

func TestFolderArchiver_EnsureDestinationReusesExisting(t *testing.T) {
	store := newFakeFileStore()
	store.addFolder("src", "Videos", "root")
	store.addFolder("existing", "completed", "src")
	store.addFolder("elsewhere", "completed", "other")

	archiver := NewFolderArchiver(store, "", discardLogger())

	id, err := archiver.EnsureDestination(context.Background(), "src")
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
	assert.Equal(t, 0, store.foldersCreated)
}

func TestFolderArchiver_EnsureDestinationErrors(t *testing.T) {
	lookupErr := errors.New("rate limited")
	createErr := errors.New("insufficient permissions")

	tests := []struct {
		name    string
		setup   func(store *MockFileStore)
		wantErr error
		wantMsg string
	}{
		{
			name: "lookup fails",
			setup: func(store *MockFileStore) {
				store.EXPECT().FindFolder(gomock.Any(), "completed", "src").Return("", lookupErr)
			},
			wantErr: lookupErr,
			wantMsg: "failed to find completed folder",
		},
		{
			name: "create fails",
			setup: func(store *MockFileStore) {
				store.EXPECT().FindFolder(gomock.Any(), "completed", "src").Return("", domain.ErrFolderNotFound)
				store.EXPECT().CreateFolder(gomock.Any(), "completed", "src").Return("", createErr)
			},
			wantErr: createErr,
			wantMsg: "failed to create completed folder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := NewMockFileStore(ctrl)
			tt.setup(store)

			_, err := NewFolderArchiver(store, "completed", discardLogger()).
				EnsureDestination(context.Background(), "src")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFolderArchiver_MoveReplacesAllParents(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockFileStore(ctrl)

	gomock.InOrder(
		store.EXPECT().GetParents(gomock.Any(), "f1").Return([]string{"src", "shared"}, nil),
		store.EXPECT().SetParents(gomock.Any(), "f1", []string{"done"}, []string{"src", "shared"}).Return(nil),
	)

	err := NewFolderArchiver(store, "completed", discardLogger()).Move(context.Background(), "f1", "done")
	require.NoError(t, err)
}

func TestFolderArchiver_MoveWithFakeStore(t *testing.T) {
	store := newFakeFileStore()
	store.addFolder("src", "Videos", "root")
	store.addFile("f1", "A.mp4", domain.DefaultMimeType, "src")
	archiver := NewFolderArchiver(store, "completed", discardLogger())

	dest, err := archiver.EnsureDestination(context.Background(), "src")
	require.NoError(t, err)

	require.NoError(t, archiver.Move(context.Background(), "f1", dest))
	assert.Equal(t, []string{dest}, store.parentsOf("f1"))
}

func TestFolderArchiver_MoveErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockFileStore(ctrl)
	archiver := NewFolderArchiver(store, "completed", discardLogger())

	store.EXPECT().GetParents(gomock.Any(), "missing").Return(nil, errors.New("not found"))
	err := archiver.Move(context.Background(), "missing", "done")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get file parents")

	store.EXPECT().GetParents(gomock.Any(), "f1").Return([]string{"src"}, nil)
	store.EXPECT().SetParents(gomock.Any(), "f1", []string{"done"}, []string{"src"}).Return(errors.New("forbidden"))
	err = archiver.Move(context.Background(), "f1", "done")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to move file")
}
