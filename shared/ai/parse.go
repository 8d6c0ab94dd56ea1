package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kick-analyzer/internal/models"
)

var (
	// ErrNoJSON means the response had no well-formed JSON value of the expected kind
	ErrNoJSON = errors.New("no JSON found in response")
	// ErrInvalidPayload means the JSON parsed but does not match the expected shape
	ErrInvalidPayload = errors.New("invalid response payload")
)

// ParseError separates "the service answered" from "the answer was usable"
type ParseError struct {
	Err      error
	Response string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v (response: %s)", e.Err, truncateString(e.Response, 200))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AnalysisPayload is the JSON shape expected from an analysis prompt
type AnalysisPayload struct {
	Metrics         *models.Metrics         `json:"metrics"`
	Recommendations []models.Recommendation `json:"recommendations"`
	TechnicalNotes  string                  `json:"technicalNotes"`
	ConfidenceLevel string                  `json:"confidenceLevel"`
}

// ParseAnalysis locates the first JSON object in the response and validates it
func ParseAnalysis(response string) (*AnalysisPayload, error) {
	raw, err := extractJSON(response, '{')
	if err != nil {
		return nil, &ParseError{Err: err, Response: response}
	}

	var payload AnalysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err), Response: response}
	}
	if err := payload.validate(); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err), Response: response}
	}
	return &payload, nil
}

func (p *AnalysisPayload) validate() error {
	if p.Metrics == nil {
		return errors.New("metrics are required")
	}
	m := p.Metrics
	scores := map[string]int{
		"formScore":    m.FormScore,
		"powerScore":   m.PowerScore,
		"balanceScore": m.BalanceScore,
		"overallScore": m.OverallScore,
	}
	for name, v := range scores {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s %d out of range [0,100]", name, v)
		}
	}
	times := map[string]float64{
		"chamberTime":    m.ChamberTime,
		"extensionTime":  m.ExtensionTime,
		"retractionTime": m.RetractionTime,
		"totalTime":      m.TotalTime,
	}
	for name, v := range times {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
	}

	switch p.ConfidenceLevel {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		return fmt.Errorf("unknown confidenceLevel %q", p.ConfidenceLevel)
	}

	for i, r := range p.Recommendations {
		switch r.Type {
		case models.RecommendationGood, models.RecommendationImprovement, models.RecommendationWarning:
		default:
			return fmt.Errorf("recommendation %d has unknown type %q", i, r.Type)
		}
		if strings.TrimSpace(r.Message) == "" {
			return fmt.Errorf("recommendation %d has no message", i)
		}
	}
	return nil
}

// ParseFeedback locates the first JSON array in the response and validates
// every coaching entry.
func ParseFeedback(response string) ([]models.CoachingFeedback, error) {
	raw, err := extractJSON(response, '[')
	if err != nil {
		return nil, &ParseError{Err: err, Response: response}
	}

	var feedback []models.CoachingFeedback
	if err := json.Unmarshal(raw, &feedback); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err), Response: response}
	}
	if len(feedback) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("%w: empty feedback list", ErrInvalidPayload), Response: response}
	}

	for i, f := range feedback {
		switch f.Priority {
		case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		default:
			return nil, &ParseError{Err: fmt.Errorf("%w: entry %d has unknown priority %q", ErrInvalidPayload, i, f.Priority), Response: response}
		}
		if strings.TrimSpace(f.Area) == "" || strings.TrimSpace(f.Recommendation) == "" {
			return nil, &ParseError{Err: fmt.Errorf("%w: entry %d is missing area or recommendation", ErrInvalidPayload, i), Response: response}
		}
	}
	return feedback, nil
}

// extractJSON returns the first well-formed JSON value starting with open.
// A candidate that does not decode as-is gets one sanitizing pass over the
// span up to the last matching close before the next candidate is tried.
func extractJSON(response string, open byte) (json.RawMessage, error) {
	closing := "}"
	if open == '[' {
		closing = "]"
	}
	endIdx := strings.LastIndex(response, closing)

	for i := 0; i < len(response); i++ {
		if response[i] != open {
			continue
		}

		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(response[i:]))
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == open {
			return raw, nil
		}

		if endIdx > i {
			sanitized := sanitizeJSON(response[i : endIdx+1])
			if json.Valid([]byte(sanitized)) {
				return json.RawMessage(sanitized), nil
			}
		}
	}
	return nil, ErrNoJSON
}

// sanitizeJSON escapes stray quotes inside single-line string values, the
// most common malformation in model output.
func sanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	var sanitizedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx != -1 && strings.Contains(line, "\"") {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := afterColon[1:lastQuoteIdx]
					content = strings.ReplaceAll(content, "\\\"", "\"")
					content = strings.ReplaceAll(content, "\"", "\\\"")
					line = beforeColon + " \"" + content + "\"" + afterColon[lastQuoteIdx+1:]
				}
			}
		}

		sanitizedLines = append(sanitizedLines, line)
	}

	return strings.Join(sanitizedLines, "\n")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
