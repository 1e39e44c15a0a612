package storage

import (
	"time"

	"ciq-assistant/internal/table"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// PendingUpdate is a proposed canonical schema change awaiting confirmation.
type PendingUpdate struct {
	ID               string
	UnmatchedColumns []string
	Snapshot         *table.Table // canonical table at proposal time
	CanonicalPath    string
	CreatedAt        time.Time
}
