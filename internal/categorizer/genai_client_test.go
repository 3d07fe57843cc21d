package categorizer

import (
	"context"
	"errors"
	"testing"

	"fjacquet/csv-ingest/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	return f.resp, f.err
}

func genaiTextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGenAIClassifier_Classify(t *testing.T) {
	fake := &fakeModels{resp: genaiTextResponse(`{"category_name":"Saúde","confidence":0.88,"reasoning":"Farmácia"}`)}
	classifier := &GenAIClassifier{models: fake, modelName: "gemini-2.0-flash"}

	reply, err := classifier.Classify(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, Reply{CategoryName: "Saúde", Confidence: 0.88, Reasoning: "Farmácia"}, reply)
	assert.Equal(t, "gemini-2.0-flash", fake.model)
	require.NotNil(t, fake.config)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
}

func TestGenAIClassifier_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeModels
		wantErr error
	}{
		{"transport", &fakeModels{err: errors.New("quota")}, parsererror.ErrClassifierUnavailable},
		{"nil response", &fakeModels{}, parsererror.ErrClassifierMalformedReply},
		{"empty text", &fakeModels{resp: genaiTextResponse("")}, parsererror.ErrClassifierMalformedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&GenAIClassifier{models: tt.fake, modelName: "m"}).Classify(context.Background(), "p")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewGenAIClassifier_RequiresKey(t *testing.T) {
	_, err := NewGenAIClassifier(context.Background(), "", "m", nil)
	assert.ErrorIs(t, err, parsererror.ErrClassifierUnavailable)
}
