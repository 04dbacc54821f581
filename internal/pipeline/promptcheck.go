package pipeline

import (
	"context"
	"fmt"
	"strings"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

// PromptCheckStage runs the dedicated account prompt for accounts flagged
// prompt-specific, instead of the generic relevance evaluation. The model is
// known to be lenient, so anything short of an unambiguous affirmation
// (empty output, malformed output, hedging) rejects the item.
type PromptCheckStage struct{}

func (PromptCheckStage) Name() string { return "prompt_check" }

func (s PromptCheckStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection

	for _, item := range items {
		if !item.PromptSpecific || item.AccountPrompt == "" {
			kept = append(kept, item)
			continue
		}

		prompt := fmt.Sprintf(`%s

Post:
"""
%s
"""

Answer with exactly "YES: <one-line summary>" if the post matches the criteria above, or exactly "NO" otherwise.`,
			item.AccountPrompt, item.Content)

		response, err := fc.AI.Evaluate(ctx, prompt, ai.Options{
			Model:       fc.Config.AI.BestModel,
			Temperature: fc.Config.AI.EvalTemperature,
		})
		if err != nil {
			rejected = append(rejected, reject(s.Name(), item, fmt.Sprintf("account prompt evaluation failed: %v", err)))
			continue
		}

		summary, ok := parseAffirmation(response)
		if !ok {
			rejected = append(rejected, reject(s.Name(), item, "account prompt did not unambiguously affirm relevance"))
			continue
		}
		if summary == "" {
			summary = item.Title
		}

		item.Evaluation = &news.Evaluation{
			Relevant:      true,
			Summary:       summary,
			Justification: "matched account-specific prompt",
			Category:      news.CategoryOther,
			RawScore:      fc.Config.Topics.BaseImportance,
		}
		kept = append(kept, item)
	}

	return kept, rejected
}

// parseAffirmation accepts only responses whose first line starts with YES
// as a whole token. Words that merely begin with "yes" do not count.
func parseAffirmation(response string) (summary string, ok bool) {
	line := strings.TrimSpace(response)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	if !strings.HasPrefix(strings.ToUpper(line), "YES") {
		return "", false
	}
	rest := line[3:]
	if rest != "" && rest[0] != ':' && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	return rest, true
}
