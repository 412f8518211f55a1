// ABOUTME: Faithfulness, context recall, and grounding scores for benchmark answers
// ABOUTME: Deterministic evaluation against each scenario's ground truth

package ragas

import (
	"fmt"
	"strings"

	"github.com/harper/study-standalone/internal/models"
)

// MetricsCalculator computes scores for benchmark tests
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness computes faithfulness score (0.0-1.0): every expected string
// present and no forbidden string present
func (m *MetricsCalculator) CalculateFaithfulness(
	response string,
	expectedInResponse []string,
	forbiddenInResponse []string,
) (float64, string) {
	responseUpper := strings.ToUpper(response)

	missingItems := []string{}
	for _, expected := range expectedInResponse {
		if !strings.Contains(responseUpper, strings.ToUpper(expected)) {
			missingItems = append(missingItems, expected)
		}
	}

	forbiddenFound := []string{}
	for _, forbidden := range forbiddenInResponse {
		if strings.Contains(responseUpper, strings.ToUpper(forbidden)) {
			forbiddenFound = append(forbiddenFound, forbidden)
		}
	}

	switch {
	case len(missingItems) == 0 && len(forbiddenFound) == 0:
		return 1.0, "response matches expected ground truth"
	case len(missingItems) > 0 && len(forbiddenFound) > 0:
		return 0.0, fmt.Sprintf("missing expected items: %v, forbidden items found: %v", missingItems, forbiddenFound)
	case len(missingItems) > 0:
		return 0.5, fmt.Sprintf("missing expected items: %v", missingItems)
	default:
		return 0.5, fmt.Sprintf("forbidden items found: %v", forbiddenFound)
	}
}

// CalculateContextRecall computes the share of expected source documents that were cited
func (m *MetricsCalculator) CalculateContextRecall(
	citedDocuments []string,
	expectedSources []string,
) (float64, string) {
	if len(expectedSources) == 0 {
		return 1.0, "no citation required"
	}

	cited := make(map[string]bool, len(citedDocuments))
	for _, d := range citedDocuments {
		cited[d] = true
	}

	missing := []string{}
	for _, src := range expectedSources {
		if !cited[src] {
			missing = append(missing, src)
		}
	}

	recall := float64(len(expectedSources)-len(missing)) / float64(len(expectedSources))
	if len(missing) == 0 {
		return 1.0, "all expected sources cited"
	}
	return recall, fmt.Sprintf("partial context recall (%.2f) - uncited sources: %v", recall, missing)
}

// CalculateGrounding checks the answer's citation contract: answers carry citations,
// and questions outside the materials get the insufficient-context marker
func (m *MetricsCalculator) CalculateGrounding(answer models.CitedAnswer, expectInsufficient bool) (bool, string) {
	if expectInsufficient {
		if answer.Insufficient && len(answer.CitedChunkIDs) == 0 {
			return true, "declined to answer from outside the materials"
		}
		return false, "answered a question the materials do not cover"
	}
	if answer.Insufficient {
		return false, "returned insufficient context for a covered question"
	}
	if len(answer.CitedChunkIDs) == 0 {
		return false, "answer has no citations"
	}
	return true, fmt.Sprintf("answer cites %d passage(s)", len(answer.CitedChunkIDs))
}

// EvaluateTest runs the full evaluation for a test
func (m *MetricsCalculator) EvaluateTest(scenario TestScenario, answer models.CitedAnswer) TestResult {
	truth := scenario.GroundTruth

	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(answer.Text, truth.ExpectedInResponse, truth.ForbiddenInResponse)

	var documents []string
	for _, c := range answer.Citations {
		documents = append(documents, c.Document)
	}
	recall, recallDetail := m.CalculateContextRecall(documents, truth.ExpectedSources)

	grounded, groundingDetail := m.CalculateGrounding(answer, truth.ExpectInsufficient)

	status := "FAIL"
	if faithfulness >= 0.9 && recall >= 0.9 && grounded {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: recall,
		Grounded:           grounded,
		OverallScore:       (faithfulness + recall) / 2.0,
		Status:             status,
		Details: map[string]interface{}{
			"faithfulness_detail": faithfulnessDetail,
			"recall_detail":       recallDetail,
			"grounding_detail":    groundingDetail,
			"final_response":      truncateRunes(answer.Text, 200),
			"citations":           len(answer.Citations),
		},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
