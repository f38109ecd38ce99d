package ai

import (
	"encoding/json"
	"fmt"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
)

const analysisSystemPrompt = `You are an expert policy analyst. Analyze the provided congressional bill and extract structured information about its clauses, affected states, and potential impacts.

Return your analysis as a JSON object with this structure:
{
  "billId": "unique-id",
  "title": "Short title of the bill",
  "summary": "2-3 sentence summary of the bill's main purpose",
  "clauses": [
    {
      "id": "unique-id",
      "title": "Clause title",
      "summary": "Brief description of what this clause does",
      "affectedStates": ["State Name 1", "State Name 2"],
      "category": "healthcare|economy|environment|education|infrastructure|defense|social|other"
    }
  ],
  "overallImpact": "positive|negative|mixed|neutral",
  "estimatedTimeframe": {
    "immediate": true/false,
    "shortTerm": true/false,
    "longTerm": true/false
  }
}

Use full state names (e.g., "California" not "CA"). Be realistic about which states would be most affected by each clause based on the bill's provisions.`

const simulationSystemPrompt = `You are an expert policy simulation engine. Based on the provided bill analysis, generate a series of realistic events that would occur as the bill takes effect across different states.

Return your simulation as a JSON array of events:
[
  {
    "id": "unique-id",
    "state": "State Name",
    "date": "YYYY-MM-DD",
    "title": "Brief event title",
    "description": "Detailed description of what happened",
    "impact": "positive|negative|neutral"
  }
]

Generate events distributed across the date range, with more events in states most affected by the bill. Events should be realistic and specific to each state's situation.`

func analysisUserPrompt(billText string) string {
	return "Analyze this congressional bill:\n\n" + billText
}

func simulationUserPrompt(analysis models.BillAnalysis, window models.DateRange) (string, error) {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal analysis")
	}
	return fmt.Sprintf("Generate simulation events for this bill analysis over the period %s to %s:\n\n%s",
		models.FormatDate(window.Start), models.FormatDate(window.End), data), nil
}
