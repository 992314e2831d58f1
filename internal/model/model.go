package model

import "time"

type Category string

const (
	CategoryInspiration Category = "inspiration"
	CategoryKnowledge   Category = "knowledge"
	CategoryThoughts    Category = "thoughts"
	CategoryConfessions Category = "confessions"

	// CategoryAll is a pseudo category used for filtering and counts.
	CategoryAll Category = "all"
)

var DefaultCategories = []Category{
	CategoryInspiration,
	CategoryKnowledge,
	CategoryThoughts,
	CategoryConfessions,
}

const DefaultCategory = CategoryThoughts

type Message struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Category    Category  `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	Image       *string   `json:"image"`
	Likes       int       `json:"likes"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
}

type Report struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type ReportedMessage struct {
	Message
	Reports []Report `json:"reports"`
}

// Prediction is one labeled probability from the image classifier.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

type Counts map[Category]int
