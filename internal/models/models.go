package models

import (
	"time"

	"github.com/google/uuid"
)

// Zone is a named grouping of territories.
type Zone struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DangerLevel classifies how careful a publisher should be in a territory.
type DangerLevel string

const (
	DangerNone   DangerLevel = "none"
	DangerLow    DangerLevel = "low"
	DangerMedium DangerLevel = "medium"
	DangerHigh   DangerLevel = "high"
)

// Valid reports whether d is one of the known levels.
func (d DangerLevel) Valid() bool {
	switch d {
	case DangerNone, DangerLow, DangerMedium, DangerHigh:
		return true
	}
	return false
}

// Territory is a unit of geographic area.
//
// ZoneID is a weak reference: a territory may exist outside any zone, and
// deleting a zone never deletes its territories.
//
// Whether a territory is available, assigned or expired is not stored here.
// It is derived from the latest Assignment by the lifecycle package.
type Territory struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	ZoneID      *uuid.UUID  `json:"zone_id"`
	MapURL      *string     `json:"map_url"`
	DangerLevel DangerLevel `json:"danger_level"`
	Warnings    *string     `json:"warnings"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TerritoryInput carries the writable fields of a territory.
type TerritoryInput struct {
	Name        string
	ZoneID      *uuid.UUID
	MapURL      *string
	DangerLevel DangerLevel
	Warnings    *string
}

// TerritoryFilter narrows territory listings. A nil ZoneID lists everything.
type TerritoryFilter struct {
	ZoneID *uuid.UUID
}

// TerritoryWithAssignment is a territory joined with its most recent
// assignment (nil when it was never assigned) and that assignment's
// publisher name.
type TerritoryWithAssignment struct {
	Territory
	Latest        *Assignment
	PublisherName *string
}

// Publisher is a person who may hold a territory assignment.
// Roles come from the publisher_roles table and are always non-nil.
type Publisher struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentStatus is the stored status of an assignment row.
type AssignmentStatus string

const (
	StatusAssigned AssignmentStatus = "assigned"
	StatusReturned AssignmentStatus = "returned"
	// StatusExpired is only written when an administrator ends an assignment
	// early. Time-based expiry is never persisted here.
	StatusExpired AssignmentStatus = "expired"
)

// Assignment is one episode of a publisher holding a territory.
//
// ReturnedAt is set exactly once. Token is generated at creation, never
// changes and is never reused by another assignment.
type Assignment struct {
	ID          uuid.UUID        `json:"id"`
	TerritoryID uuid.UUID        `json:"territory_id"`
	PublisherID uuid.UUID        `json:"publisher_id"`
	AssignedAt  time.Time        `json:"assigned_at"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	Status      AssignmentStatus `json:"status"`
	ReturnedAt  *time.Time       `json:"returned_at"`
	Token       string           `json:"token"`
}

// NewAssignment is what the command layer hands to the store on insert.
type NewAssignment struct {
	TerritoryID uuid.UUID
	PublisherID uuid.UUID
	AssignedAt  time.Time
	ExpiresAt   *time.Time
	Token       string
}

// AssignmentFilter narrows assignment history listings.
type AssignmentFilter struct {
	TerritoryID *uuid.UUID
	PublisherID *uuid.UUID
	// OpenOnly keeps rows that have not been returned.
	OpenOnly bool
}

// AssignmentDetail is an assignment joined with the names the public view
// and the admin lists display.
type AssignmentDetail struct {
	Assignment
	TerritoryName string `json:"territory_name"`
	PublisherName string `json:"publisher_name"`
}

// DefaultTerritoryLinkDays is used when the settings row has never been written.
const DefaultTerritoryLinkDays = 30

// AppSettings is the single global configuration row.
type AppSettings struct {
	TerritoryLinkDays int       `json:"territory_link_days"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PublicAccess is one row of the public_territory_access projection.
//
// It is a cache of Assignment, Territory and Publisher. IsExpired may lag
// behind ExpiresAt until the next expiration sync runs.
type PublicAccess struct {
	Token         string      `json:"token"`
	AssignmentID  uuid.UUID   `json:"assignment_id"`
	TerritoryID   uuid.UUID   `json:"territory_id"`
	TerritoryName string      `json:"territory_name"`
	MapURL        *string     `json:"map_url"`
	DangerLevel   DangerLevel `json:"danger_level"`
	Warnings      *string     `json:"warnings"`
	PublisherID   uuid.UUID   `json:"publisher_id"`
	PublisherName string      `json:"publisher_name"`
	AssignedAt    time.Time   `json:"assigned_at"`
	ExpiresAt     *time.Time  `json:"expires_at"`
	ReturnedAt    *time.Time  `json:"returned_at"`
	IsExpired     bool        `json:"is_expired"`
	RefreshedAt   time.Time   `json:"refreshed_at"`
}
