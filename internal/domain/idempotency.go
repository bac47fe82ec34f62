package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (user_id, scope, key). Scope is the project ID of the conversation
// or "general" for the unscoped partition. It enables safe retries of
// POST /guide/chat by returning the originally produced assistant message
// without generating (and paying for) a second reply.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	MessageID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// ScopeGeneral is the idempotency scope of conversations without a project.
const ScopeGeneral = "general"

// ScopeFor returns the idempotency scope for an optional project ID.
func ScopeFor(projectID *string) string {
	if projectID == nil || *projectID == "" {
		return ScopeGeneral
	}
	return *projectID
}
