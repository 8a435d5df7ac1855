package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// VertexConfig configures the Gemini backend on Vertex AI.
type VertexConfig struct {
	Project     string
	Region      string
	Model       string
	Prompt      string
	Temperature float32
	Timeout     time.Duration
}

// Vertex sends documents inline to a Gemini model.
type Vertex struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *slog.Logger
}

// NewVertex dials Vertex AI with application default credentials.
func NewVertex(ctx context.Context, log *slog.Logger, cfg VertexConfig) (*Vertex, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(cfg.Prompt)},
	}
	model.SetTemperature(cfg.Temperature)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Vertex{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		logger:  log.With(slog.String("provider", "vertex")),
	}, nil
}

func (v *Vertex) Name() string {
	return "vertex"
}

// Summarize sends the document bytes as an inline blob.
func (v *Vertex) Summarize(ctx context.Context, doc Document) (string, error) {
	return v.generate(ctx, genai.Blob{MIMEType: doc.Mime, Data: doc.Data}, genai.Text(DocumentInstruction))
}

// SummarizeText summarizes already extracted text.
func (v *Vertex) SummarizeText(ctx context.Context, title, text string) (string, error) {
	return v.generate(ctx, genai.Text(linkInstruction+"\n\n"+strings.TrimSpace(title)+"\n\n"+text))
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

func (v *Vertex) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty gemini response", ErrParse)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
