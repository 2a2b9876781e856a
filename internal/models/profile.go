// internal/models/profile.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Relationship describes how a guest is related to the parents-to-be.
type Relationship string

const (
	RelationshipMother      Relationship = "Mother"
	RelationshipFather      Relationship = "Father"
	RelationshipGrandparent Relationship = "Grandparent"
	RelationshipAuntUncle   Relationship = "Aunt/Uncle"
	RelationshipFriend      Relationship = "Friend"
)

// Relationships lists the accepted values in display order.
var Relationships = []Relationship{
	RelationshipMother,
	RelationshipFather,
	RelationshipGrandparent,
	RelationshipAuntUncle,
	RelationshipFriend,
}

// ParseRelationship returns the matching Relationship, or false if raw is not one of them.
func ParseRelationship(raw string) (Relationship, bool) {
	for _, r := range Relationships {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// Profile represents a row in the profiles table.
type Profile struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Relationship Relationship `json:"relationship"`
	CreatedAt    time.Time    `json:"created_at"`
}
