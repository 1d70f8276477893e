package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/drive-transcriber/internal/worker/domain"
	"google.golang.org/genai"
)

const (
	DefaultModel  = "gemini-2.5-flash"
	DefaultPrompt = "Please transcribe this video content and dialogue:"

	defaultPollDelay = 5 * time.Second
	defaultMaxPolls  = 60
	cleanupTimeout   = 30 * time.Second
)

var errEmptyTranscript = errors.New("model returned an empty transcript")

// ContentSource streams the bytes of a remote file
type ContentSource interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}

// Config holds transcription configuration
type Config struct {
	Model     string
	Prompt    string
	PollDelay time.Duration
	MaxPolls  int
	// InlineMaxBytes sends files up to this size inline instead of through
	// the Files API. Zero always uploads.
	InlineMaxBytes int64
}

// Transcriber transcribes remote videos with Gemini
type Transcriber struct {
	api    GeminiAPI
	source ContentSource
	config Config
	logger *slog.Logger
}

// New creates a new Transcriber
func New(api GeminiAPI, source ContentSource, config Config, logger *slog.Logger) *Transcriber {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if config.PollDelay <= 0 {
		config.PollDelay = defaultPollDelay
	}
	if config.MaxPolls <= 0 {
		config.MaxPolls = defaultMaxPolls
	}

	return &Transcriber{
		api:    api,
		source: source,
		config: config,
		logger: logger,
	}
}

// Transcribe returns the transcript of file. Every failure wraps
// domain.ErrTranscriptionFailed and is not retried here.
func (t *Transcriber) Transcribe(ctx context.Context, file domain.RemoteFile) (string, error) {
	start := time.Now()

	text, err := t.transcribe(ctx, file)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptionFailed, err)
	}

	t.logger.Info("Transcription received",
		slog.String("file_id", file.ID),
		slog.Int("length", len(text)),
		slog.Duration("duration", time.Since(start)),
	)

	return text, nil
}

func (t *Transcriber) transcribe(ctx context.Context, file domain.RemoteFile) (string, error) {
	body, mimeType, err := t.source.Download(ctx, file.ID)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer body.Close()

	mimeType = resolveMimeType(mimeType, file.MimeType)

	var content io.Reader = body
	if t.config.InlineMaxBytes > 0 {
		head, err := io.ReadAll(io.LimitReader(body, t.config.InlineMaxBytes+1))
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		if int64(len(head)) <= t.config.InlineMaxBytes {
			t.logger.Debug("Sending file inline",
				slog.String("file_id", file.ID),
				slog.Int("size", len(head)),
			)
			return t.generate(ctx, genai.NewPartFromBytes(head, mimeType))
		}
		content = io.MultiReader(bytes.NewReader(head), body)
	}

	uploaded, err := t.api.Upload(ctx, content, mimeType, file.Name)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer t.cleanup(ctx, uploaded.Name)

	ready, err := t.waitActive(ctx, uploaded)
	if err != nil {
		return "", err
	}

	if ready.MIMEType != "" {
		mimeType = ready.MIMEType
	}
	return t.generate(ctx, genai.NewPartFromURI(ready.URI, mimeType))
}

// waitActive polls the uploaded file with a fixed delay until it is ACTIVE.
// FAILED is terminal.
func (t *Transcriber) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for polls := 0; ; polls++ {
		switch file.State {
		case genai.FileStateActive:
			return file, nil
		case genai.FileStateFailed:
			msg := "unknown error"
			if file.Error != nil && file.Error.Message != "" {
				msg = file.Error.Message
			}
			return nil, fmt.Errorf("file processing failed: %s", msg)
		}

		if polls >= t.config.MaxPolls {
			return nil, fmt.Errorf("file not ready after %d polls", polls)
		}

		select {
		case <-time.After(t.config.PollDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for file processing: %w", ctx.Err())
		}

		next, err := t.api.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get file state: %w", err)
		}
		file = next
	}
}

func (t *Transcriber) generate(ctx context.Context, media *genai.Part) (string, error) {
	text, err := t.api.Generate(ctx, t.config.Model, []*genai.Part{
		genai.NewPartFromText(t.config.Prompt),
		media,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyTranscript
	}
	return text, nil
}

// cleanup deletes the uploaded file; failures only leave it to expire
func (t *Transcriber) cleanup(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := t.api.DeleteFile(ctx, name); err != nil {
		t.logger.Warn("Failed to delete uploaded file",
			slog.String("name", name),
			slog.Any("error", err),
		)
	}
}

func resolveMimeType(downloaded, listed string) string {
	if i := strings.IndexByte(downloaded, ';'); i >= 0 {
		downloaded = downloaded[:i]
	}
	downloaded = strings.TrimSpace(downloaded)

	switch {
	case downloaded != "" && downloaded != "application/octet-stream":
		return downloaded
	case listed != "":
		return listed
	default:
		return domain.DefaultMimeType
	}
}
