// Package news defines the item model flowing through the pipeline and the
// persisted state shapes shared by the cache and the orchestrator.
package news

import (
	"strings"
	"time"
)

type SourceType string

const (
	SourceSocial SourceType = "social"
	SourceFeed   SourceType = "feed"
	SourceScrape SourceType = "scrape"
)

// Item is one fetched news entry. Adapters construct it; pipeline stages may
// rewrite Content and attach an Evaluation, nothing else mutates it.
type Item struct {
	SourceType  SourceType
	SourceName  string
	Title       string
	Content     string
	Link        string
	PublishedAt time.Time
	Priority    int

	// Social account behavior flags, copied from the account config.
	MediaRefs      []string
	MediaOnly      bool
	SkipEvaluation bool
	PromptSpecific bool
	AccountPrompt  string

	Evaluation *Evaluation
}

type Category string

const (
	CategoryEconomic     Category = "economic"
	CategoryDiplomatic   Category = "diplomatic"
	CategoryMilitary     Category = "military"
	CategoryLegal        Category = "legal"
	CategoryIntelligence Category = "intelligence"
	CategoryHumanitarian Category = "humanitarian"
	CategoryPolitical    Category = "political"
	CategoryOther        Category = "other"
)

// ParseCategory normalizes free-form model output onto the known set,
// falling back to other.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryEconomic:
		return CategoryEconomic
	case CategoryDiplomatic:
		return CategoryDiplomatic
	case CategoryMilitary:
		return CategoryMilitary
	case CategoryLegal:
		return CategoryLegal
	case CategoryIntelligence:
		return CategoryIntelligence
	case CategoryHumanitarian:
		return CategoryHumanitarian
	case CategoryPolitical:
		return CategoryPolitical
	default:
		return CategoryOther
	}
}

// Evaluation is the model's verdict on an item.
type Evaluation struct {
	Relevant      bool     `json:"relevant"`
	Summary       string   `json:"summary"`
	Justification string   `json:"justification"`
	Category      Category `json:"category"`
	RawScore      float64  `json:"score"`
}

// SourceState is the per-source fetch cursor, committed only after a cycle
// completes its non-quiet-hours work.
type SourceState struct {
	LastSeenID string `json:"lastSeenId,omitempty"`
}
