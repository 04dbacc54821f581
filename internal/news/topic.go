package news

import "time"

// ActiveTopic is a tracked story thread. Follow-up items matching its
// entities or keywords within the cooldown window are treated as
// consequences of the original event rather than fresh news.
type ActiveTopic struct {
	TopicID  string   `json:"topicId"`
	Entities []string `json:"entities"`
	Keywords []string `json:"keywords"`

	StartTime     time.Time `json:"startTime"`
	LastUpdate    time.Time `json:"lastUpdate"`
	CooldownUntil time.Time `json:"cooldownUntil"`

	CoreEventsSent   int           `json:"coreEventsSent"`
	ConsequencesSent int           `json:"consequencesSent"`
	Consequences     []Consequence `json:"consequences,omitempty"`

	OriginalItem OriginalItem `json:"originalItem"`
}

type Consequence struct {
	Title           string    `json:"title"`
	Source          string    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
	ImportanceScore float64   `json:"importanceScore"`
	Category        Category  `json:"category"`
	Justification   string    `json:"justification"`
	RawScore        float64   `json:"rawScore"`
}

type OriginalItem struct {
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	Justification  string  `json:"justification"`
	BaseImportance float64 `json:"baseImportance"`
}

// HistoricalEntry summarizes an already-dispatched item for cross-cycle
// duplicate awareness.
type HistoricalEntry struct {
	Title         string     `json:"title"`
	Source        string     `json:"source"`
	SourceType    SourceType `json:"sourceType,omitempty"`
	Link          string     `json:"link"`
	Summary       string     `json:"summary,omitempty"`
	Justification string     `json:"justification,omitempty"`
	Category      Category   `json:"category,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// PersistedState is the on-disk cache file layout. Absent fields default to
// empty on load; the file is rewritten whole after each completed cycle.
type PersistedState struct {
	Items            []HistoricalEntry      `json:"items"`
	ActiveTopics     []*ActiveTopic         `json:"activeTopics"`
	SourceAPIState   map[string]SourceState `json:"sourceApiState"`
	LastRunTimestamp *time.Time             `json:"lastRunTimestamp,omitempty"`
}
