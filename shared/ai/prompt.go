package ai

import (
	"fmt"
	"strings"

	"kick-analyzer/internal/models"
	"kick-analyzer/shared/biomech"
)

func kickTaxonomy() string {
	lines := make([]string, 0, len(models.KnownKickTypes))
	for _, k := range models.KnownKickTypes {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, k.DisplayName()))
	}
	return strings.Join(lines, "\n")
}

func scoringCriteria(b biomech.Bands) string {
	return fmt.Sprintf(`- Knee angle at chamber: ideal %.0f-%.0f°, acceptable %.0f-%.0f°
- Hip flexion: ideal %.0f-%.0f°, acceptable %.0f-%.0f°
- Kick height (hip-to-ankle separation, %% of frame): excellent >= %.0f, good >= %.0f
- Balance: landmark visibility above %.2f indicates a stable, fully tracked stance
- formScore reflects knee and hip mechanics, powerScore reflects hip drive and height,
  balanceScore reflects stability, overallScore summarizes all three (integers 0-100)`,
		b.KneeIdeal.Min, b.KneeIdeal.Max, b.KneeWide.Min, b.KneeWide.Max,
		b.HipIdeal.Min, b.HipIdeal.Max, b.HipWide.Min, b.HipWide.Max,
		b.HeightHigh.Min, b.HeightMedium.Min,
		b.VisibilityThreshold)
}

func buildAnalysisPrompt(req AnalysisRequest, seq biomech.Sequence, bands biomech.Bands) string {
	peak := seq.Peak

	return fmt.Sprintf(`You are an expert taekwondo biomechanics coach analyzing motion-capture data of a single kick.

KICK TYPES:
%s

TECHNIQUE UNDER ANALYSIS: %s (%s)
Frames: %d at %d fps
Kicking leg: %s

SCORING CRITERIA:
%s

LANDMARK SUMMARY AT PEAK EXTENSION:
Right knee angle: %.1f°
Left knee angle: %.1f°
Right hip angle: %.1f°
Left hip angle: %.1f°
Right kick height: %.1f%%
Left kick height: %.1f%%
Average landmark visibility: %.2f

SEQUENCE RANGES (kicking leg):
Knee angle: avg %.1f, min %.1f, max %.1f
Hip flexion: avg %.1f, min %.1f, max %.1f
Kick height: avg %.1f, min %.1f, max %.1f

Please provide your analysis in the following JSON format:
{
  "metrics": {
    "kneeAngle": {"avg": number, "min": number, "max": number},
    "hipFlexion": {"avg": number, "min": number, "max": number},
    "kickHeight": {"avg": number, "min": number, "max": number},
    "chamberTime": number (seconds, > 0),
    "extensionTime": number (seconds, > 0),
    "retractionTime": number (seconds, > 0),
    "totalTime": number (seconds, > 0),
    "peakVelocity": number,
    "balanceScore": integer (0-100),
    "formScore": integer (0-100),
    "powerScore": integer (0-100),
    "overallScore": integer (0-100)
  },
  "recommendations": [{"type": "good" | "improvement" | "warning", "message": "..."}],
  "technicalNotes": "Short technical assessment of the kick",
  "confidenceLevel": "high" | "medium" | "low"
}`,
		kickTaxonomy(),
		req.KickType, req.KickType.DisplayName(),
		req.frameCount(), biomech.EffectiveFPS(req.FPS),
		seq.Side,
		scoringCriteria(bands),
		peak.RightKneeAngle, peak.LeftKneeAngle,
		peak.RightHipAngle, peak.LeftHipAngle,
		peak.RightKickHeight, peak.LeftKickHeight,
		peak.AverageVisibility,
		seq.KneeAngle.Avg, seq.KneeAngle.Min, seq.KneeAngle.Max,
		seq.HipFlexion.Avg, seq.HipFlexion.Min, seq.HipFlexion.Max,
		seq.KickHeight.Avg, seq.KickHeight.Min, seq.KickHeight.Max,
	)
}

func buildCoachingPrompt(result *models.AnalysisResult, history []*models.SessionRecord) string {
	m := result.Metrics

	var notes strings.Builder
	for _, r := range result.Recommendations {
		fmt.Fprintf(&notes, "- [%s] %s\n", r.Type, r.Message)
	}
	if notes.Len() == 0 {
		notes.WriteString("- none\n")
	}

	var past strings.Builder
	for _, h := range history {
		if h == nil {
			continue
		}
		fmt.Fprintf(&past, "- %s %s: overall %d (form %d, power %d, balance %d)\n",
			h.RecordedAt.Format("2006-01-02 15:04"), h.KickType, h.OverallScore, h.FormScore, h.PowerScore, h.BalanceScore)
	}
	if past.Len() == 0 {
		past.WriteString("- no previous sessions\n")
	}

	return fmt.Sprintf(`You are a taekwondo coach writing a training plan from a kick analysis.

TECHNIQUE: %s
SCORES: overall %d, form %d, power %d, balance %d
Knee angle avg %.1f°, hip flexion avg %.1f°, kick height avg %.1f%%
Total time %.2fs (chamber %.2fs, extension %.2fs, retraction %.2fs)

ANALYSIS NOTES:
%s
TECHNICAL NOTES: %s

PREVIOUS SESSIONS:
%s
INSTRUCTIONS:
1. Prioritize the weakest areas first
2. Use the previous sessions to note trends when relevant
3. Give one concrete drill per recommendation

Please answer with a JSON array in the following format:
[
  {"priority": "high" | "medium" | "low", "area": "Form", "recommendation": "...", "drill": "..."}
]`,
		result.KickType.DisplayName(),
		m.OverallScore, m.FormScore, m.PowerScore, m.BalanceScore,
		m.KneeAngle.Avg, m.HipFlexion.Avg, m.KickHeight.Avg,
		m.TotalTime, m.ChamberTime, m.ExtensionTime, m.RetractionTime,
		notes.String(),
		result.TechnicalNotes,
		past.String(),
	)
}
