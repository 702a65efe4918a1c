package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names a status-bearing entity.
type EntityKind string

const (
	EntityOrder  EntityKind = "order"
	EntityReturn EntityKind = "return"
	EntityRefund EntityKind = "refund"
)

// String returns the string representation of the kind.
func (k EntityKind) String() string {
	return string(k)
}

// StatusChange is one committed transition, written in the same transaction as the status.
type StatusChange struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EntityKind EntityKind `gorm:"not null;index:idx_status_history_entity" json:"entity_kind"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_status_history_entity" json:"entity_id"`
	FromStatus string     `json:"from_status"`
	ToStatus   string     `gorm:"not null" json:"to_status"`
	ActorID    uuid.UUID  `gorm:"type:uuid" json:"actor_id"`
	ActorRole  Role       `json:"actor_role"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName returns the database table name.
func (StatusChange) TableName() string {
	return "status_history"
}

// NewStatusChange builds a history row for a transition made by actor.
func NewStatusChange(kind EntityKind, entityID uuid.UUID, from, to string, actor Actor, note string, at time.Time) *StatusChange {
	return &StatusChange{
		ID:         uuid.New(),
		EntityKind: kind,
		EntityID:   entityID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Note:       note,
		CreatedAt:  at,
	}
}
