package detector

import (
	"strings"

	"github.com/Iqra-23/intrusion-backend/models"
)

// suspiciousPatterns are path substrings that typically indicate injection,
// XSS, traversal or admin-panel probing. Matched case-insensitively.
var suspiciousPatterns = []string{
	"select ",
	"union ",
	" or 1=1",
	"../",
	"<script",
	" onerror=",
	" drop ",
	"insert into",
	"xp_cmdshell",
	"admin",
	"config.php",
	"wp-admin",
}

// DefaultHighRiskCountries is the fallback country-code set when none is
// configured.
var DefaultHighRiskCountries = []string{"CN", "RU", "KP", "IR", "SY", "PK"}

type ScoreInput struct {
	Method    string
	Path      string
	Status    int
	Geo       *models.Geo
	IsSpike   bool
	UserAgent string

	// HighRiskCountries overrides DefaultHighRiskCountries when non-nil.
	HighRiskCountries []string
}

// Score computes a heuristic risk score in [0,100] for a single request plus
// the list of triggered reasons. Rules are additive and independent; the
// reasons come back in rule order. The function is pure so callers can rely
// on identical inputs producing identical output.
func Score(in ScoreInput) (int, []string) {
	score := 0
	var reasons []string

	if in.IsSpike {
		score += 40
		reasons = append(reasons, "High request rate (spike)")
	}

	if in.Status >= 500 {
		score += 30
		reasons = append(reasons, "5xx server error")
	} else if in.Status >= 400 {
		score += 20
		reasons = append(reasons, "4xx client error")
	}

	switch in.Method {
	case "PUT", "DELETE", "PATCH":
		score += 10
		reasons = append(reasons, "High-impact HTTP method: "+in.Method)
	case "POST":
		score += 5
		reasons = append(reasons, "Write operation (POST)")
	}

	lowerPath := strings.ToLower(in.Path)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lowerPath, p) {
			score += 15
			reasons = append(reasons, "Suspicious pattern in path (possible injection/XSS)")
			break
		}
	}

	if in.Geo != nil && in.Geo.Country != "" {
		countries := in.HighRiskCountries
		if countries == nil {
			countries = DefaultHighRiskCountries
		}
		for _, c := range countries {
			if in.Geo.Country == c {
				score += 10
				reasons = append(reasons, "High-risk geo region: "+c)
				break
			}
		}
	}

	ua := strings.ToLower(in.UserAgent)
	if ua == "" || strings.Contains(ua, "curl") || strings.Contains(ua, "bot") || strings.Contains(ua, "scanner") {
		score += 10
		reasons = append(reasons, "Non-browser / bot-like user agent")
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}
