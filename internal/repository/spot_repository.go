// Package repository contains data access logic separated from HTTP
// handlers. This file defines repository methods for spots. A Spot is a
// tourism venue that owns sellable tickets; only ID, Name and
// Description should be exposed in public API responses.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tour-ticketing/internal/model"
)

// SpotRepo encapsulates all database queries related to spots.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo constructs a SpotRepo with the provided DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo {
	return &SpotRepo{db: db}
}

// Create inserts a new spot. On success the spot's ID field is
// populated with the auto-generated value and a follow-up SELECT fills
// the timestamp columns so callers receive a fully populated record.
func (r *SpotRepo) Create(ctx context.Context, s *model.Spot) error {
	const qInsert = `INSERT INTO spots (name, description) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, s.Name, s.Description)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const qSelect = `SELECT name, description, created_at, updated_at FROM spots WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, s.ID).Scan(&s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID fetches a spot by its ID. It returns ErrSpotNotFound if no
// row is found.
func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (*model.Spot, error) {
	const q = `SELECT id, name, description, created_at, updated_at FROM spots WHERE id = ?`
	var s model.Spot
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListAll returns every spot ordered by name. Used by the public browse
// endpoints; an empty slice is returned when there are no spots.
func (r *SpotRepo) ListAll(ctx context.Context) ([]model.Spot, error) {
	const q = `SELECT id, name, description, created_at, updated_at FROM spots ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spots := make([]model.Spot, 0)
	for rows.Next() {
		var s model.Spot
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spots, nil
}

// Update rewrites the spot's name and description. It returns
// ErrSpotNotFound when the row does not exist.
func (r *SpotRepo) Update(ctx context.Context, id uint64, name, description string) error {
	const q = `UPDATE spots SET name = ?, description = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, name, description, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "missing" from "unchanged": an UPDATE that sets a
		// row to its current values also reports zero affected rows.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a spot. Deleting a spot that still has tickets fails
// with ErrConflict so stock cannot silently disappear from the catalog.
func (r *SpotRepo) Delete(ctx context.Context, id uint64) error {
	var ticketCount int
	const qCount = `SELECT COUNT(*) FROM tickets WHERE spot_id = ?`
	if err := r.db.QueryRowContext(ctx, qCount, id).Scan(&ticketCount); err != nil {
		return err
	}
	if ticketCount > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSpotNotFound
	}
	return nil
}
