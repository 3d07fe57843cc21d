package categorizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"
)

// Reply is the structured answer of the external classifier.
type Reply struct {
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

type wireReply struct {
	CategoryName string   `json:"category_name"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

// ParseReply decodes a model answer. Markdown fences and text around the
// JSON object are tolerated. A missing confidence becomes 0.5 and values
// outside [0,1] are clamped.
func ParseReply(raw string) (Reply, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return Reply{}, fmt.Errorf("%w: empty reply", parsererror.ErrClassifierMalformedReply)
	}

	var w wireReply
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", parsererror.ErrClassifierMalformedReply, err)
	}
	if strings.TrimSpace(w.CategoryName) == "" {
		return Reply{}, fmt.Errorf("%w: category_name missing", parsererror.ErrClassifierMalformedReply)
	}

	reply := Reply{
		CategoryName: strings.TrimSpace(w.CategoryName),
		Confidence:   models.ConfidenceExternalFallback,
		Reasoning:    strings.TrimSpace(w.Reasoning),
	}
	if w.Confidence != nil {
		reply.Confidence = clamp01(*w.Confidence)
	}
	if reply.Reasoning == "" {
		reply.Reasoning = models.ReasoningExternalDefault
	}
	return reply, nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
