package ai

import (
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/models"
)

// extractJSON returns the substring from the first open to the last closing bracket.
//
// Models like to wrap their JSON in prose or code fences, so the payload is cut out greedily.
func extractJSON(content string, open, closing byte) (string, bool) {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, closing)
	if start < 0 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAnalysis fills in missing identifiers and lowercases the enums before validation.
func normalizeAnalysis(a *models.BillAnalysis) {
	if a.BillID == "" {
		a.BillID = uuid.NewString()
	}
	a.OverallImpact = models.OverallImpact(normalizeEnum(string(a.OverallImpact)))
	for i := range a.Clauses {
		clause := &a.Clauses[i]
		if clause.ID == "" {
			clause.ID = uuid.NewString()
		}
		clause.Category = models.Category(normalizeEnum(string(clause.Category)))
	}
}
