package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

var floatExpr = regexp.MustCompile(`\d+(?:\.\d+)?`)

// TopicHistoryStage is the cross-cycle redundancy gate. An item matching no
// active topic is a new core event and seeds a topic of its own. An item
// matching one is a follow-up and must clear an importance bar that rises
// with every consequence already sent for that topic; an exceptional score
// additionally spawns a fresh topic, the follow-up has become a story in
// its own right.
type TopicHistoryStage struct{}

func (TopicHistoryStage) Name() string { return "topic_history" }

func (s TopicHistoryStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection

	for _, item := range items {
		topic := fc.Cache.FindMatchingTopic(item, fc.Now)
		if topic == nil {
			entities, keywords := s.extractTerms(ctx, fc, item)
			fc.Cache.CreateTopic(item, entities, keywords, fc.Config.Topics.BaseImportance, fc.Now)
			kept = append(kept, item)
			continue
		}

		category := news.CategoryOther
		if item.Evaluation != nil {
			category = item.Evaluation.Category
		}
		score := s.scoreConsequence(ctx, fc, item, topic)
		weighted := score * fc.Config.Topics.CategoryWeight(string(category))
		threshold := consequenceThreshold(fc.Config.Topics.ConsequenceThresholds, topic.ConsequencesSent)

		if weighted < threshold {
			rejected = append(rejected, reject(s.Name(), item,
				fmt.Sprintf("follow-up to topic %s scored %.1f, below threshold %.1f", topic.TopicID, weighted, threshold)))
			continue
		}

		fc.Cache.RecordConsequence(topic, item, weighted, fc.Now)
		if weighted >= fc.Config.Topics.EscalationThreshold {
			entities, keywords := s.extractTerms(ctx, fc, item)
			fc.Cache.CreateTopic(item, entities, keywords, fc.Config.Topics.BaseImportance, fc.Now)
			fc.Logger.Info("follow-up escalated to new topic", "topic_id", topic.TopicID, "title", item.Title, "score", weighted)
		}
		kept = append(kept, item)
	}

	return kept, rejected
}

// consequenceThreshold returns the bar for the (sent+1)-th consequence,
// clamped to the last configured step.
func consequenceThreshold(thresholds []float64, sent int) float64 {
	if len(thresholds) == 0 {
		return 0
	}
	if sent >= len(thresholds) {
		return thresholds[len(thresholds)-1]
	}
	return thresholds[sent]
}

func (s TopicHistoryStage) scoreConsequence(ctx context.Context, fc *Context, item *news.Item, topic *news.ActiveTopic) float64 {
	prompt := fmt.Sprintf(`An ongoing story is being tracked:
Original event: %s

A follow-up item arrived:
Title: %s
Content:
"""
%s
"""

Rate how important this follow-up is on its own, from 1 to 10, where 10 is a major development that changes the story. Respond with only the number.`,
		topic.OriginalItem.Title, item.Title, item.Content)

	response, err := fc.AI.Evaluate(ctx, prompt, ai.Options{
		Model:       fc.Config.AI.BestModel,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err != nil {
		fc.Logger.Warn("consequence scoring failed", "topic_id", topic.TopicID, "link", item.Link, "error", err)
		return 0
	}

	token := floatExpr.FindString(response)
	if token == "" {
		return 0
	}
	score, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return score
}

// extractTerms asks the model for the entities and keywords that identify a
// story thread, falling back to significant title words when the call or
// parse fails.
func (s TopicHistoryStage) extractTerms(ctx context.Context, fc *Context, item *news.Item) (entities, keywords []string) {
	prompt := fmt.Sprintf(`Extract the identifying terms of this news story for follow-up matching.

Title: %s
Content:
"""
%s
"""

Respond with a single JSON object and nothing else:
{"entities": ["<proper nouns: people, places, organizations>"], "keywords": ["<distinctive topic words>"]}`,
		item.Title, item.Content)

	response, err := fc.AI.Evaluate(ctx, prompt, ai.Options{
		Model:       fc.Config.AI.Model,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err == nil {
		if start, end := strings.IndexByte(response, '{'), strings.LastIndexByte(response, '}'); start >= 0 && end > start {
			var raw struct {
				Entities []string `json:"entities"`
				Keywords []string `json:"keywords"`
			}
			if json.Unmarshal([]byte(response[start:end+1]), &raw) == nil && (len(raw.Entities) > 0 || len(raw.Keywords) > 0) {
				return raw.Entities, raw.Keywords
			}
		}
	} else {
		fc.Logger.Warn("term extraction failed, using title words", "link", item.Link, "error", err)
	}

	return nil, titleKeywords(item.Title)
}

func titleKeywords(title string) []string {
	var keywords []string
	for _, word := range strings.Fields(title) {
		word = strings.Trim(word, `.,:;!?"'()[]`)
		if len([]rune(word)) >= 5 {
			keywords = append(keywords, word)
		}
		if len(keywords) == 6 {
			break
		}
	}
	return keywords
}
