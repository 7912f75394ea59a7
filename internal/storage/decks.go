package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
)

// DeckRecord is a persisted deck snapshot.
type DeckRecord struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	Format           string      `json:"format"`
	Archetype        string      `json:"archetype,omitempty"`
	Colors           []string    `json:"colors"`
	Deck             *cards.Deck `json:"deck"`
	QualityScore     *float64    `json:"quality_score,omitempty"`
	ImprovementNotes string      `json:"improvement_notes,omitempty"`
	TotalCards       int         `json:"total_cards"`
	UserID           *string     `json:"user_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// DeckUpdate describes a partial update; nil fields are left unchanged.
type DeckUpdate struct {
	Name             *string
	Description      *string
	Archetype        *string
	Deck             *cards.Deck
	QualityScore     *float64
	ImprovementNotes *string
}

// DeckListFilters narrow a deck listing. Zero values mean "no constraint".
type DeckListFilters struct {
	Format    string
	Archetype string
	UserID    string
}

// DeckStore is the durable store of completed decks.
type DeckStore struct {
	db *DB
}

// NewDeckStore creates a deck store backed by the given database.
func NewDeckStore(db *DB) *DeckStore {
	return &DeckStore{db: db}
}

// Save persists a deck snapshot and returns its id. A missing id is
// assigned; timestamps are server-assigned.
func (s *DeckStore) Save(ctx context.Context, rec *DeckRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if rec.Deck != nil {
		rec.Deck.CalculateTotals()
		rec.TotalCards = rec.Deck.TotalCards
		if len(rec.Colors) == 0 {
			rec.Colors = rec.Deck.Colors
		}
	}

	deckData, err := json.Marshal(rec.Deck)
	if err != nil {
		return "", fmt.Errorf("failed to marshal deck body: %w", err)
	}
	colors, err := json.Marshal(rec.Colors)
	if err != nil {
		return "", fmt.Errorf("failed to marshal colors: %w", err)
	}

	query := `
		INSERT INTO decks (
			id, name, description, format, archetype, colors, deck_data,
			quality_score, improvement_notes, total_cards, user_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.conn.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Description, rec.Format, rec.Archetype,
		string(colors), string(deckData), rec.QualityScore,
		rec.ImprovementNotes, rec.TotalCards, rec.UserID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to save deck", err)
	}
	return rec.ID, nil
}

// GetByID fetches a deck record. Returns a not_found error when absent.
func (s *DeckStore) GetByID(ctx context.Context, id string) (*DeckRecord, error) {
	row := s.db.conn.QueryRowContext(ctx, selectDeckColumns+` FROM decks WHERE id = ?`, id)
	rec, err := scanDeck(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.KindNotFound, "deck %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to get deck", err)
	}
	return rec, nil
}

// List returns deck records matching the filters, newest first.
func (s *DeckStore) List(ctx context.Context, filters DeckListFilters, limit, offset int) ([]*DeckRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var (
		conds []string
		args  []any
	)
	if filters.Format != "" {
		conds = append(conds, "format = ?")
		args = append(args, filters.Format)
	}
	if filters.Archetype != "" {
		conds = append(conds, "archetype = ?")
		args = append(args, filters.Archetype)
	}
	if filters.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filters.UserID)
	}

	query := selectDeckColumns + " FROM decks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to list decks", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*DeckRecord
	for rows.Next() {
		rec, err := scanDeck(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to scan deck", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to iterate decks", err)
	}
	return results, nil
}

// Update applies a partial update and refreshes updated_at. created_at is
// never touched. Returns a not_found error for an unknown id.
func (s *DeckStore) Update(ctx context.Context, id string, upd DeckUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Archetype != nil {
		sets = append(sets, "archetype = ?")
		args = append(args, *upd.Archetype)
	}
	if upd.Deck != nil {
		upd.Deck.CalculateTotals()
		deckData, err := json.Marshal(upd.Deck)
		if err != nil {
			return fmt.Errorf("failed to marshal deck body: %w", err)
		}
		colors, err := json.Marshal(upd.Deck.Colors)
		if err != nil {
			return fmt.Errorf("failed to marshal colors: %w", err)
		}
		sets = append(sets, "deck_data = ?", "colors = ?", "total_cards = ?")
		args = append(args, string(deckData), string(colors), upd.Deck.TotalCards)
	}
	if upd.QualityScore != nil {
		sets = append(sets, "quality_score = ?")
		args = append(args, *upd.QualityScore)
	}
	if upd.ImprovementNotes != nil {
		sets = append(sets, "improvement_notes = ?")
		args = append(args, *upd.ImprovementNotes)
	}

	if len(sets) == 0 {
		return apperr.New(apperr.KindInvalidInput, "no fields to update")
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	res, err := s.db.conn.ExecContext(ctx,
		"UPDATE decks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to update deck", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.KindNotFound, "deck %s not found", id)
	}
	return nil
}

// Delete removes a deck. Returns a not_found error for an unknown id.
func (s *DeckStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to delete deck", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.KindNotFound, "deck %s not found", id)
	}
	return nil
}

// Count returns the number of decks matching the filters.
func (s *DeckStore) Count(ctx context.Context, filters DeckListFilters) (int, error) {
	var (
		conds []string
		args  []any
	)
	if filters.Format != "" {
		conds = append(conds, "format = ?")
		args = append(args, filters.Format)
	}
	if filters.Archetype != "" {
		conds = append(conds, "archetype = ?")
		args = append(args, filters.Archetype)
	}
	if filters.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filters.UserID)
	}

	query := "SELECT COUNT(*) FROM decks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var n int
	if err := s.db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to count decks", err)
	}
	return n, nil
}

const selectDeckColumns = `
	SELECT id, name, description, format, archetype, colors, deck_data,
	       quality_score, improvement_notes, total_cards, user_id,
	       created_at, updated_at`

func scanDeck(row scanner) (*DeckRecord, error) {
	var (
		rec      DeckRecord
		colors   string
		deckData string
	)

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Description, &rec.Format, &rec.Archetype,
		&colors, &deckData, &rec.QualityScore, &rec.ImprovementNotes,
		&rec.TotalCards, &rec.UserID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(colors), &rec.Colors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal colors: %w", err)
	}
	if deckData != "" && deckData != "null" {
		var deck cards.Deck
		if err := json.Unmarshal([]byte(deckData), &deck); err != nil {
			return nil, fmt.Errorf("failed to unmarshal deck body: %w", err)
		}
		rec.Deck = &deck
	}
	return &rec, nil
}
