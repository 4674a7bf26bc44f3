package models

import "time"

// Reply sources.
const (
	SourceUpstream = "upstream"
	SourceFallback = "fallback"
)

// ChatExchange is one logged assistant turn. Rows are append-only.
type ChatExchange struct {
	ID        int64     `db:"id" json:"id"`
	PartyID   int64     `db:"party_id" json:"party_id"`
	Message   string    `db:"message" json:"message"`
	Response  string    `db:"response" json:"response"`
	Intent    string    `db:"intent" json:"intent"`
	Source    string    `db:"source" json:"source"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
