package settings

import "strings"

// SecurityLevel はAPIキー運用の安全度です。
type SecurityLevel string

const (
	SecurityHigh   SecurityLevel = "high"
	SecurityMedium SecurityLevel = "medium"
	SecurityLow    SecurityLevel = "low"
)

// SecurityStatus は SecurityCheck の結果です。
type SecurityStatus struct {
	Level           SecurityLevel `json:"level"`
	Score           int           `json:"score"`
	Issues          []string      `json:"issues"`
	Recommendations []string      `json:"recommendations"`
}

// SecurityCheck は設定と実行環境からAPIキーの扱いを採点します。
func SecurityCheck(s Settings, mobile bool) SecurityStatus {
	status := SecurityStatus{Score: 100, Issues: []string{}, Recommendations: []string{}}

	key := strings.TrimSpace(s.APIKey)
	switch {
	case key == "":
		status.Score -= 50
		status.Issues = append(status.Issues, "No API key configured")
		status.Recommendations = append(status.Recommendations, "Add your Gemini API key")
	case len(key) < 20:
		status.Score -= 30
		status.Issues = append(status.Issues, "API key looks too short")
		status.Recommendations = append(status.Recommendations, "Verify the API key was copied completely")
	}

	if mobile {
		status.Score -= 10
		status.Recommendations = append(status.Recommendations, "Review mobile security tips")
	}
	if !s.SecurityEducationShown {
		status.Score -= 10
		status.Recommendations = append(status.Recommendations, "Read the security tips")
	}

	switch {
	case status.Score >= 80:
		status.Level = SecurityHigh
	case status.Score >= 50:
		status.Level = SecurityMedium
	default:
		status.Level = SecurityLow
	}
	return status
}
