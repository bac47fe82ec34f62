// Package domain defines the persistence models for the guidance engine:
// conversation messages, the project catalog, per-user mode assignments and
// the hint ledger. These types are mapped with GORM and form the core data
// layer of the service.
package domain

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single immutable conversation turn. Messages are partitioned by
// (OwnerID, ProjectID); a nil ProjectID is the general mentoring partition and
// never mixes with project-scoped conversations.
//
// Fields:
//   - Seq: monotonic insertion sequence, breaks CreatedAt ties.
//   - ID: stable UUID exposed to clients.
//   - OwnerID: authenticated user that owns the conversation.
//   - ProjectID: optional project scope.
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full text, byte-identical to what the client was sent.
type Message struct {
	Seq       uint64    `json:"-"          gorm:"primaryKey;autoIncrement"`
	ID        string    `json:"id"         gorm:"type:char(36);not null;uniqueIndex"`
	OwnerID   string    `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_project_msgs,priority:1"`
	ProjectID *string   `json:"project_id" gorm:"type:varchar(64);index:idx_owner_project_msgs,priority:2"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_owner_project_msgs,priority:3"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "chat_messages" }

// Project is a catalog entry a learner can work on. Technologies and learning
// objectives are stored as JSON arrays.
type Project struct {
	ID                 string      `json:"id"                  gorm:"type:varchar(64);primaryKey"`
	Title              string      `json:"title"               gorm:"type:varchar(255);not null"`
	Slug               string      `json:"slug"                gorm:"type:varchar(255);index"`
	Description        string      `json:"description"         gorm:"type:text"`
	DifficultyLevel    string      `json:"difficulty_level"    gorm:"type:varchar(32)"`
	Technologies       []string    `json:"technologies"        gorm:"type:text;serializer:json"`
	LearningObjectives []string    `json:"learning_objectives" gorm:"type:text;serializer:json"`
	Milestones         []Milestone `json:"milestones"          gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// Milestone is a numbered sub-goal of a project. Number is 1-based and unique
// within the project.
//
// SeedHints holds hints authored with the catalog. It accepts both the legacy
// flat-list shape and the canonical map keyed by mode (see SeedHints).
type Milestone struct {
	ID                 string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	ProjectID          string    `json:"project_id"          gorm:"type:varchar(64);not null;uniqueIndex:ux_project_milestone,priority:1"`
	Number             int       `json:"number"              gorm:"not null;uniqueIndex:ux_project_milestone,priority:2"`
	Title              string    `json:"title"               gorm:"type:varchar(255);not null"`
	Description        string    `json:"description"         gorm:"type:text"`
	ValidationCriteria string    `json:"validation_criteria" gorm:"type:text"`
	SeedHints          SeedHints `json:"seed_hints,omitempty" gorm:"type:text;serializer:json"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for Milestone.
func (Milestone) TableName() string { return "project_milestones" }

// ModeAssignment records the difficulty mode a user committed to when
// starting a project. At most one exists per (OwnerID, ProjectID).
type ModeAssignment struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"   gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_project_mode,priority:1"`
	ProjectID string    `json:"project_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_project_mode,priority:2"`
	Mode      Mode      `json:"mode"       gorm:"type:varchar(16);not null;check:mode IN ('GUIDED','STANDARD','HARDCORE')"`
	Status    string    `json:"status"     gorm:"type:varchar(32);not null;default:'IN_PROGRESS'"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ModeAssignment.
func (ModeAssignment) TableName() string { return "mode_assignments" }

// HintRecord is one issued hint. The ledger for (ProjectID, MilestoneNumber,
// Mode) is the set of rows ordered by Position; rows are only ever appended.
type HintRecord struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ProjectID       string    `json:"project_id"       gorm:"type:varchar(64);not null;uniqueIndex:ux_hint_slot,priority:1"`
	MilestoneNumber int       `json:"milestone_number" gorm:"not null;uniqueIndex:ux_hint_slot,priority:2"`
	Mode            Mode      `json:"mode"             gorm:"type:varchar(16);not null;uniqueIndex:ux_hint_slot,priority:3"`
	Position        int       `json:"position"         gorm:"not null;uniqueIndex:ux_hint_slot,priority:4"`
	Content         string    `json:"content"          gorm:"type:text;not null"`
	RequestedBy     string    `json:"requested_by"     gorm:"type:varchar(64)"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the database table name for HintRecord.
func (HintRecord) TableName() string { return "hint_records" }
