package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

// TopicGroupStage collapses same-cycle coverage of one story from multiple
// outlets into a single representative item. The model groups the numbered
// items; within a group the highest-priority source wins, and on a priority
// tie a second call picks the most substantive piece. An unusable grouping
// response leaves the batch untouched.
type TopicGroupStage struct{}

func (TopicGroupStage) Name() string { return "topic_group" }

func (s TopicGroupStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	if len(items) < 2 {
		return items, nil
	}

	groups := s.group(ctx, fc, items)
	if groups == nil {
		return items, nil
	}

	dropped := make(map[int]int)
	for _, group := range groups {
		members := validMembers(group, len(items), dropped)
		if len(members) < 2 {
			continue
		}
		winner := s.pickWinner(ctx, fc, items, members)
		for _, member := range members {
			if member != winner {
				dropped[member] = winner
			}
		}
	}

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for i, item := range items {
		winner, gone := dropped[i]
		if !gone {
			kept = append(kept, item)
			continue
		}
		rejected = append(rejected, reject(s.Name(), item,
			fmt.Sprintf("same story as %s", items[winner].Link)))
	}
	return kept, rejected
}

func (s TopicGroupStage) group(ctx context.Context, fc *Context, items []*news.Item) [][]int {
	var b strings.Builder
	b.WriteString("Group the numbered news items below by story: items about the same underlying event belong in one group.\n")
	b.WriteString("Respond with a JSON array of arrays of item numbers, e.g. [[1,3],[2]], and nothing else. Singletons may be omitted.\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, item.SourceName, item.Title)
	}

	response, err := fc.AI.Evaluate(ctx, b.String(), ai.Options{
		Model:       fc.Config.AI.Model,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err != nil {
		fc.Logger.Warn("grouping call failed, keeping all items", "error", err)
		return nil
	}

	start := strings.IndexByte(response, '[')
	end := strings.LastIndexByte(response, ']')
	if start < 0 || end <= start {
		fc.Logger.Warn("unparseable grouping response, keeping all items")
		return nil
	}

	var groups [][]int
	if err := json.Unmarshal([]byte(response[start:end+1]), &groups); err != nil {
		fc.Logger.Warn("unparseable grouping response, keeping all items", "error", err)
		return nil
	}
	return groups
}

// validMembers converts one-based group numbers to in-range, not-yet-dropped
// zero-based indexes.
func validMembers(group []int, total int, dropped map[int]int) []int {
	var members []int
	seen := make(map[int]bool)
	for _, n := range group {
		idx := n - 1
		if idx < 0 || idx >= total || seen[idx] {
			continue
		}
		if _, gone := dropped[idx]; gone {
			continue
		}
		seen[idx] = true
		members = append(members, idx)
	}
	return members
}

func (s TopicGroupStage) pickWinner(ctx context.Context, fc *Context, items []*news.Item, members []int) int {
	winner := members[0]
	tied := false
	for _, member := range members[1:] {
		switch {
		case items[member].Priority > items[winner].Priority:
			winner = member
			tied = false
		case items[member].Priority == items[winner].Priority:
			tied = true
		}
	}
	if !tied {
		return winner
	}

	var candidates []int
	for _, member := range members {
		if items[member].Priority == items[winner].Priority {
			candidates = append(candidates, member)
		}
	}
	if len(candidates) < 2 {
		return winner
	}

	var b strings.Builder
	b.WriteString("The numbered items below cover the same story. Pick the single most substantive and complete one.\n")
	b.WriteString("Respond with only its number.\n\n")
	for i, member := range candidates {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, items[member].Title, items[member].Content)
	}

	response, err := fc.AI.Evaluate(ctx, b.String(), ai.Options{
		Model:       fc.Config.AI.Model,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err != nil {
		return candidates[0]
	}

	token := numberExpr.FindString(response)
	for i := range candidates {
		if token == fmt.Sprint(i+1) {
			return candidates[i]
		}
	}
	return candidates[0]
}
