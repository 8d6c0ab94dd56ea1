package models

// Grade is a letter grade band for an overall score
type Grade struct {
	Threshold int    `json:"threshold"`
	Letter    string `json:"letter"`
	Label     string `json:"label"`
}

var grades = []Grade{
	{90, "A+", "Elite"},
	{85, "A", "Excellent"},
	{80, "A-", "Very Good"},
	{75, "B+", "Good"},
	{70, "B", "Above Average"},
	{65, "B-", "Fair"},
	{60, "C+", "Average"},
	{55, "C", "Below Average"},
	{0, "D", "Needs Work"},
}

// GradeFor returns the highest band whose threshold the score reaches
func GradeFor(score int) Grade {
	for _, g := range grades {
		if score >= g.Threshold {
			return g
		}
	}
	return grades[len(grades)-1]
}
