// internal/matching/scoring/gemini.go
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"loan-matching-workers/internal/models"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiRefiner asks Gemini for a bounded adjustment to the
// deterministic score. It never replaces the deterministic result; the
// engine clamps whatever comes back.
type GeminiRefiner struct {
	client    *genai.Client
	modelName string
}

// NewGeminiRefiner creates a refiner backed by the Gemini API.
func NewGeminiRefiner(ctx context.Context, apiKey, model string) (*GeminiRefiner, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	return &GeminiRefiner{client: client, modelName: model}, nil
}

type refinement struct {
	Adjustment float64 `json:"adjustment"`
	Reason     string  `json:"reason"`
}

func (g *GeminiRefiner) Refine(ctx context.Context, user models.User, candidate ScoredCandidate) (float64, string, error) {
	if g == nil || g.client == nil {
		return 0, "", errors.New("gemini refiner is not initialized")
	}

	prompt := buildRefinementPrompt(user, candidate)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return 0, "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	return parseRefinement(builder.String())
}

func buildRefinementPrompt(user models.User, candidate ScoredCandidate) string {
	minIncome := "none"
	if candidate.Product.MinIncome != nil {
		minIncome = fmt.Sprintf("%.2f", *candidate.Product.MinIncome)
	}
	minCredit := "none"
	if candidate.Product.MinCreditScore != nil {
		minCredit = fmt.Sprintf("%d", *candidate.Product.MinCreditScore)
	}

	return fmt.Sprintf(`A rule-based engine scored a borrower against a loan product at %.2f out of 100.

Borrower: credit score %d, monthly income %.2f, employment %s, age %d.
Product: %s by %s, interest rate %.2f%%, minimum credit score %s, minimum monthly income %s.

Suggest a small adjustment to the score based on overall fit. Respond with JSON only:
{"adjustment": <number between -5 and 5>, "reason": "<one short sentence>"}`,
		candidate.Score,
		user.CreditScore, user.MonthlyIncome, user.EmploymentStatus, user.Age,
		candidate.Product.ProductName, candidate.Product.Provider,
		candidate.Product.InterestRate, minCredit, minIncome)
}

// parseRefinement extracts the JSON object from the model response,
// tolerating surrounding prose or markdown fences.
func parseRefinement(text string) (float64, string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return 0, "", fmt.Errorf("no JSON object in refinement response")
	}

	var r refinement
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return 0, "", fmt.Errorf("parse refinement response: %w", err)
	}
	return r.Adjustment, strings.TrimSpace(r.Reason), nil
}
