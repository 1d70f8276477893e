package transcriber

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/genai"
)

// GeminiAPI is the subset of the Gemini Files and Models APIs used for transcription
type GeminiAPI interface {
	Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*genai.File, error)
	GetFile(ctx context.Context, name string) (*genai.File, error)
	DeleteFile(ctx context.Context, name string) error
	Generate(ctx context.Context, model string, parts []*genai.Part) (string, error)
}

type genaiClient struct {
	client *genai.Client
}

// NewGeminiAPI creates a Gemini Developer API client
func NewGeminiAPI(ctx context.Context, apiKey string) (GeminiAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &genaiClient{client: client}, nil
}

func (c *genaiClient) Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*genai.File, error) {
	return c.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
}

func (c *genaiClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return c.client.Files.Get(ctx, name, nil)
}

func (c *genaiClient) DeleteFile(ctx context.Context, name string) error {
	_, err := c.client.Files.Delete(ctx, name, nil)
	return err
}

func (c *genaiClient) Generate(ctx context.Context, model string, parts []*genai.Part) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
