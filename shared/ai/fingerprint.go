package ai

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"kick-analyzer/internal/models"

	"github.com/cespare/xxhash/v2"
)

const (
	analysisKeyPrefix = "analysis:"
	coachingKeyPrefix = "coaching:"
)

// AnalysisFingerprint hashes every semantically relevant field of the
// request, the full landmark sequence included.
func AnalysisFingerprint(req AnalysisRequest) string {
	h := xxhash.New()
	buf := make([]byte, 0, 64)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(req.KickType)))
	_, _ = h.Write(buf)
	_, _ = h.WriteString(string(req.KickType))
	buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(req.Frames))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(req.FPS))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(req.Landmarks)))
	_, _ = h.Write(buf)

	for _, frame := range req.Landmarks {
		buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(len(frame)))
		_, _ = h.Write(buf)
		for _, p := range frame {
			buf = buf[:0]
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Y))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Z))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Visibility))
			_, _ = h.Write(buf)
		}
	}

	return analysisKeyPrefix + strconv.FormatUint(h.Sum64(), 16)
}

type coachingKey struct {
	KickType        models.KickType         `json:"kick_type"`
	Metrics         models.Metrics          `json:"metrics"`
	Recommendations []models.Recommendation `json:"recommendations"`
	TechnicalNotes  string                  `json:"technical_notes"`
	History         []historyKey            `json:"history"`
}

type historyKey struct {
	ID      string `json:"id"`
	Overall int    `json:"overall"`
}

// CoachingFingerprint hashes the analysis and the history it is coached
// against. It fails for metrics JSON cannot represent (NaN, Inf).
func CoachingFingerprint(result *models.AnalysisResult, history []*models.SessionRecord) (string, error) {
	key := coachingKey{
		KickType:        result.KickType,
		Metrics:         result.Metrics,
		Recommendations: result.Recommendations,
		TechnicalNotes:  result.TechnicalNotes,
	}
	for _, h := range history {
		if h != nil {
			key.History = append(key.History, historyKey{ID: h.ID, Overall: h.OverallScore})
		}
	}

	data, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("coaching fingerprint: %w", err)
	}
	return coachingKeyPrefix + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
