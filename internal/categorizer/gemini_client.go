package categorizer

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/parsererror"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// contentGenerator is the part of *genai.GenerativeModel the classifier uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier calls Gemini through github.com/google/generative-ai-go.
type GeminiClassifier struct {
	client    *genai.Client
	model     contentGenerator
	modelName string
	logger    logging.Logger
}

// NewGeminiClassifier creates a client for modelName authenticated with apiKey.
func NewGeminiClassifier(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GeminiClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key not set", parsererror.ErrClassifierUnavailable)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClassifier{
		client:    client,
		model:     client.GenerativeModel(modelName),
		modelName: modelName,
		logger:    logger,
	}, nil
}

// newGeminiClassifierWithModel is used by tests to inject a fake model.
func newGeminiClassifierWithModel(model contentGenerator, logger logging.Logger) *GeminiClassifier {
	return &GeminiClassifier{model: model, modelName: "test", logger: logger}
}

// Classify sends the prompt and parses the JSON answer.
func (g *GeminiClassifier) Classify(ctx context.Context, prompt string) (Reply, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Reply{}, classifyCallError(ctx, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Reply{}, fmt.Errorf("%w: no candidates", parsererror.ErrClassifierMalformedReply)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	if g.logger != nil {
		g.logger.Debug("Gemini reply received",
			logging.F("model", g.modelName),
			logging.F("length", b.Len()))
	}
	return ParseReply(b.String())
}

// Close releases the underlying client.
func (g *GeminiClassifier) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
