package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisSummary is one row of an organization's analysis history.
type AnalysisSummary struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	WorkType       string    `json:"work_type"`
	CreatedAt      time.Time `json:"created_at"`
	ResultsSummary string    `json:"results_summary"`
	MatchCount     int       `json:"match_count"`
}

// AnalyzeResponse is returned by the analyze endpoint.
type AnalyzeResponse struct {
	ID      uuid.UUID       `json:"id"`
	Results AnalysisResults `json:"results"`
}

// DeliverableResponse is returned by the deliverable endpoint.
type DeliverableResponse struct {
	DeliverableType DeliverableType `json:"deliverable_type"`
	Content         Deliverable     `json:"content"`
}

// ChatMessage is one turn of an analyst conversation.
type ChatMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// ChatResponse is returned by the chat endpoint.
type ChatResponse struct {
	Response string `json:"response"`
}
