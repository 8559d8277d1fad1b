// Package domain contains core concepts of the messaging engine.
// Conversations, participants, messages and notifications are plain
// values; no storage, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two conversation shapes the storefront knows.
type Kind string

const (
	// KindDirectWithStaffGroup links one customer to the whole staff pool.
	KindDirectWithStaffGroup Kind = "direct-with-staff-group"
	// KindStaffToStaff links exactly two staff members.
	KindStaffToStaff Kind = "staff-to-staff"
)

// Role is the capacity a member holds within one conversation,
// independent of their global account role. Open string; the engine
// only gives meaning to RoleStaff and RoleCustomer.
type Role string

const (
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Conversation is an addressable chat thread. Immutable after creation.
type Conversation struct {
	ID        uuid.UUID
	Kind      Kind
	OwnerID   string // owning customer identity, only for KindDirectWithStaffGroup
	CreatedAt time.Time
}

// Participant is a (conversation, identity, role) membership record.
type Participant struct {
	ConversationID uuid.UUID
	MemberID       string
	Role           Role
}
