package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFile struct {
	id       string
	name     string
	mimeType string
	folder   bool
	parents  []string
}

// fakeFileStore is an in-memory hierarchical store
type fakeFileStore struct {
	mu             sync.Mutex
	files          map[string]*fakeFile
	order          []string
	nextID         int
	authErr        error
	listErr        error
	setParentsErr  map[string]error
	foldersCreated int
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		files:         make(map[string]*fakeFile),
		setParentsErr: make(map[string]error),
	}
}

func (s *fakeFileStore) addFolder(id, name, parentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = &fakeFile{id: id, name: name, mimeType: "application/vnd.google-apps.folder", folder: true, parents: []string{parentID}}
	s.order = append(s.order, id)
}

func (s *fakeFileStore) addFile(id, name, mimeType, parentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = &fakeFile{id: id, name: name, mimeType: mimeType, parents: []string{parentID}}
	s.order = append(s.order, id)
}

func (s *fakeFileStore) parentsOf(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files[id].parents)
}

func (s *fakeFileStore) Authenticate(ctx context.Context) error {
	return s.authErr
}

func (s *fakeFileStore) ListEligible(ctx context.Context, filter domain.FileFilter) ([]domain.RemoteFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []domain.RemoteFile
	for _, id := range s.order {
		f := s.files[id]
		if f.folder || f.mimeType != filter.MimeType {
			continue
		}
		if !slices.Contains(f.parents, filter.ParentID) {
			continue
		}
		if filter.ExcludeParentID != "" && slices.Contains(f.parents, filter.ExcludeParentID) {
			continue
		}
		out = append(out, domain.RemoteFile{ID: f.id, Name: f.name, MimeType: f.mimeType, ContentRef: "fake://" + f.id})
	}
	return out, nil
}

func (s *fakeFileStore) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		f := s.files[id]
		if f.folder && f.name == name && slices.Contains(f.parents, parentID) {
			return f.id, nil
		}
	}
	return "", domain.ErrFolderNotFound
}

func (s *fakeFileStore) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	s.nextID++
	s.foldersCreated++
	id := fmt.Sprintf("folder-%d", s.nextID)
	s.mu.Unlock()

	s.addFolder(id, name, parentID)
	return id, nil
}

func (s *fakeFileStore) GetParents(ctx context.Context, fileID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return slices.Clone(f.parents), nil
}

func (s *fakeFileStore) SetParents(ctx context.Context, fileID string, add, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setParentsErr[fileID]; err != nil {
		return err
	}

	f, ok := s.files[fileID]
	if !ok {
		return fmt.Errorf("file %s not found", fileID)
	}

	parents := slices.DeleteFunc(f.parents, func(p string) bool {
		return slices.Contains(remove, p)
	})
	for _, a := range add {
		if !slices.Contains(parents, a) {
			parents = append(parents, a)
		}
	}
	f.parents = parents
	return nil
}

func (s *fakeFileStore) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, "", fmt.Errorf("file %s not found", fileID)
	}
	return io.NopCloser(strings.NewReader("content of " + f.name)), f.mimeType, nil
}

// fakeJobStore enforces the same uniqueness and monotonic rules as the SQL store
type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	creates int
	findErr error
	// archiveFailures makes the next N MarkArchived calls fail
	archiveFailures int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeJobStore) get(fileID string) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[fileID]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

func (s *fakeJobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *fakeJobStore) FindByFileID(ctx context.Context, fileID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}
	job, ok := s.jobs[fileID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *fakeJobStore) Create(ctx context.Context, fileID, fileName string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[fileID]; ok {
		return nil, domain.ErrJobExists
	}
	s.creates++
	now := time.Now()
	job := &domain.Job{
		ID:        fmt.Sprintf("job-%d", s.creates),
		FileID:    fileID,
		FileName:  fileName,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[fileID] = job
	cp := *job
	return &cp, nil
}

func (s *fakeJobStore) MarkCompleted(ctx context.Context, fileID, transcript string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[fileID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.IsCompleted() {
		return nil, domain.ErrJobAlreadyCompleted
	}
	job.Status = domain.JobStatusCompleted
	job.Transcript = &transcript
	job.UpdatedAt = time.Now()
	cp := *job
	return &cp, nil
}

func (s *fakeJobStore) failArchive(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiveFailures = n
}

func (s *fakeJobStore) MarkArchived(ctx context.Context, fileID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.archiveFailures > 0 {
		s.archiveFailures--
		return nil, errors.New("connection reset")
	}

	job, ok := s.jobs[fileID]
	if !ok || !job.IsCompleted() {
		return nil, domain.ErrJobNotCompleted
	}
	if job.ArchivedAt == nil {
		now := time.Now()
		job.ArchivedAt = &now
	}
	cp := *job
	return &cp, nil
}

// stubTranscriber fails for the file names in failures
type stubTranscriber struct {
	mu       sync.Mutex
	failures map[string]error
	panics   map[string]bool
	calls    map[string]int
	prefix   string
}

func newStubTranscriber() *stubTranscriber {
	return &stubTranscriber{
		failures: make(map[string]error),
		panics:   make(map[string]bool),
		calls:    make(map[string]int),
		prefix:   "transcript of ",
	}
}

func (t *stubTranscriber) fail(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[name] = err
}

func (t *stubTranscriber) succeed(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, name)
}

func (t *stubTranscriber) callsFor(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[name]
}

func (t *stubTranscriber) Transcribe(ctx context.Context, file domain.RemoteFile) (string, error) {
	t.mu.Lock()
	t.calls[file.Name]++
	err := t.failures[file.Name]
	shouldPanic := t.panics[file.Name]
	prefix := t.prefix
	t.mu.Unlock()

	if shouldPanic {
		panic("transcriber exploded")
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptionFailed, err)
	}
	return prefix + file.Name, nil
}

type notification struct {
	kind   string
	fileID string
	status string
}

// recordingNotifier keeps every event in emission order
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) OnPending(ctx context.Context, job *domain.Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{kind: "new_pending_job", fileID: job.FileID, status: job.Status})
}

func (n *recordingNotifier) OnCompleted(ctx context.Context, job *domain.Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{kind: "job_completed", fileID: job.FileID, status: job.Status})
}

func (n *recordingNotifier) kinds(kind string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, e := range n.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.events)
}
