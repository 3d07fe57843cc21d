package categorizer

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/parsererror"

	"google.golang.org/genai"
)

// modelsAPI is the part of *genai.Models the classifier uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClassifier calls Gemini through google.golang.org/genai.
type GenAIClassifier struct {
	models    modelsAPI
	modelName string
	logger    logging.Logger
}

// NewGenAIClassifier creates a Gemini API backend client.
func NewGenAIClassifier(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GenAIClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key not set", parsererror.ErrClassifierUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClassifier{models: client.Models, modelName: modelName, logger: logger}, nil
}

// Classify sends the prompt requesting a JSON answer.
func (g *GenAIClassifier) Classify(ctx context.Context, prompt string) (Reply, error) {
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Reply{}, classifyCallError(ctx, err)
	}
	if resp == nil {
		return Reply{}, fmt.Errorf("%w: empty response", parsererror.ErrClassifierMalformedReply)
	}

	text := resp.Text()
	if g.logger != nil {
		g.logger.Debug("GenAI reply received",
			logging.F("model", g.modelName),
			logging.F("length", len(text)))
	}
	return ParseReply(text)
}
