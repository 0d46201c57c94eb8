package model

import "time"

// Spot represents a tourism venue (an attraction, park or museum) as
// stored in the `spots` table. Tickets are always sold under a spot;
// the spot name is snapshotted onto order items so that historical
// orders stay readable after a spot is renamed or removed.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human-friendly venue name, unique.
//  Description – optional free-text description.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Spot struct {
	ID          uint64    // spots.id
	Name        string    // spots.name
	Description string    // spots.description
	CreatedAt   time.Time // spots.created_at
	UpdatedAt   time.Time // spots.updated_at
}
