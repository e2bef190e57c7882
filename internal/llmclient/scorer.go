// File: internal/llmclient/scorer.go
// Description: Implements the risk-scoring collaborator contract on top of
// the model client: a fact sheet in, a structured judgment out.
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

const summarySystemPrompt = `You are a browser-extension security analyst.
Given the extracted facts about an extension, produce a JSON object with the
fields: risk_level (one of "low", "medium", "high"), summary (a short
executive summary), key_findings (array of strings), recommendations (array
of strings). Base your judgment only on the provided facts.`

const permissionSystemPrompt = `You are a browser-extension security analyst.
Judge whether the requested permission is reasonable for the described
extension. Respond with a JSON object with the fields: reasonable (boolean)
and reasoning (a short justification).`

// Judge produces the executive summary for a full fact sheet. It is a single
// attempt per run; the workflow never retries it.
func (c *Client) Judge(ctx context.Context, facts schemas.RiskFacts) (*schemas.ExecutiveSummary, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling risk facts: %w", err)
	}

	raw, err := c.generateJSON(ctx, summarySystemPrompt, string(factsJSON))
	if err != nil {
		return nil, err
	}

	var summary schemas.ExecutiveSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decoding executive summary: %w", err)
	}
	if summary.RiskLevel == "" || summary.Summary == "" {
		return nil, fmt.Errorf("executive summary missing required fields")
	}
	summary.RiskLevel = strings.ToLower(summary.RiskLevel)
	return &summary, nil
}

// JudgePermission evaluates whether a single permission is reasonable for the
// described extension.
func (c *Client) JudgePermission(ctx context.Context, name, description, permission string) (*schemas.PermissionVerdict, error) {
	prompt := fmt.Sprintf(
		"Extension name: %s\nExtension description: %s\nRequested permission: %s",
		name, description, permission,
	)

	raw, err := c.generateJSON(ctx, permissionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var verdict schemas.PermissionVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return nil, fmt.Errorf("decoding permission verdict: %w", err)
	}
	verdict.Permission = permission
	return &verdict, nil
}
