package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
)

// CardStore is the durable keyed store of catalog card records.
type CardStore struct {
	db *DB
}

// NewCardStore creates a card store backed by the given database.
func NewCardStore(db *DB) *CardStore {
	return &CardStore{db: db}
}

// SearchFilters narrow a catalog search. Zero values mean "no constraint".
type SearchFilters struct {
	Colors      []string // cards whose colors are a subset of this set
	Types       []string // any listed type must appear
	CMCMin      *float64
	CMCMax      *float64
	Rarity      string
	FormatLegal string // format name the card must be legal in
	Text        string // full-text query over name, oracle text, type line
}

// SaveCard inserts or replaces a card record.
func (s *CardStore) SaveCard(ctx context.Context, card *cards.Card) error {
	colors, err := json.Marshal(card.Colors)
	if err != nil {
		return fmt.Errorf("failed to marshal colors: %w", err)
	}
	identity, err := json.Marshal(card.ColorIdentity)
	if err != nil {
		return fmt.Errorf("failed to marshal color identity: %w", err)
	}
	types, err := json.Marshal(card.Types)
	if err != nil {
		return fmt.Errorf("failed to marshal types: %w", err)
	}
	subtypes, err := json.Marshal(card.Subtypes)
	if err != nil {
		return fmt.Errorf("failed to marshal subtypes: %w", err)
	}
	legalities, err := json.Marshal(card.Legalities)
	if err != nil {
		return fmt.Errorf("failed to marshal legalities: %w", err)
	}
	keywords, err := json.Marshal(card.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	query := `
		INSERT INTO cards (
			id, name, name_lower, mana_cost, cmc, colors, color_identity,
			type_line, types, subtypes, oracle_text, power, toughness, loyalty,
			set_code, rarity, legalities, keywords
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_lower = excluded.name_lower,
			mana_cost = excluded.mana_cost,
			cmc = excluded.cmc,
			colors = excluded.colors,
			color_identity = excluded.color_identity,
			type_line = excluded.type_line,
			types = excluded.types,
			subtypes = excluded.subtypes,
			oracle_text = excluded.oracle_text,
			power = excluded.power,
			toughness = excluded.toughness,
			loyalty = excluded.loyalty,
			set_code = excluded.set_code,
			rarity = excluded.rarity,
			legalities = excluded.legalities,
			keywords = excluded.keywords
	`

	_, err = s.db.conn.ExecContext(ctx, query,
		card.ID, card.Name, strings.ToLower(card.Name), card.ManaCost, card.CMC,
		string(colors), string(identity), card.TypeLine, string(types),
		string(subtypes), card.OracleText, card.Power, card.Toughness,
		card.Loyalty, card.SetCode, card.Rarity, string(legalities),
		string(keywords),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to save card", err)
	}
	return nil
}

// GetByID fetches a card by its catalog id. Returns (nil, nil) when absent.
func (s *CardStore) GetByID(ctx context.Context, id string) (*cards.Card, error) {
	row := s.db.conn.QueryRowContext(ctx, selectCardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to get card by id", err)
	}
	return card, nil
}

// GetByName fetches a card by name, case-insensitively. Name collisions
// resolve to the earliest-ingested row. Returns (nil, nil) when absent.
func (s *CardStore) GetByName(ctx context.Context, name string) (*cards.Card, error) {
	row := s.db.conn.QueryRowContext(ctx,
		selectCardColumns+` FROM cards WHERE name_lower = ? ORDER BY rowid ASC LIMIT 1`,
		strings.ToLower(name),
	)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to get card by name", err)
	}
	return card, nil
}

// Search returns cards matching the filters, ordered by name then id.
// Color-subset and legality predicates are applied after the scan; the
// cheaper predicates run in SQL.
func (s *CardStore) Search(ctx context.Context, filters SearchFilters, limit int) ([]*cards.Card, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		conds []string
		args  []any
		from  = "cards"
	)

	if filters.Text != "" {
		from = "cards JOIN cards_fts ON cards.rowid = cards_fts.rowid"
		conds = append(conds, "cards_fts MATCH ?")
		args = append(args, ftsQuery(filters.Text))
	}
	if filters.CMCMin != nil {
		conds = append(conds, "cards.cmc >= ?")
		args = append(args, *filters.CMCMin)
	}
	if filters.CMCMax != nil {
		conds = append(conds, "cards.cmc <= ?")
		args = append(args, *filters.CMCMax)
	}
	if filters.Rarity != "" {
		conds = append(conds, "cards.rarity = ?")
		args = append(args, strings.ToLower(filters.Rarity))
	}
	for _, t := range filters.Types {
		conds = append(conds, "cards.type_line LIKE ?")
		args = append(args, "%"+t+"%")
	}

	query := selectCardColumnsQualified + " FROM " + from
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY cards.name ASC, cards.id ASC"

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to search cards", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*cards.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to scan card", err)
		}
		if len(filters.Colors) > 0 && !card.HasColorIdentityWithin(filters.Colors) {
			continue
		}
		if filters.FormatLegal != "" && !card.LegalIn(filters.FormatLegal) {
			continue
		}
		results = append(results, card)
		if len(results) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to iterate cards", err)
	}
	return results, nil
}

// Count returns the total number of catalog cards.
func (s *CardStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to count cards", err)
	}
	return n, nil
}

const selectCardColumns = `
	SELECT id, name, mana_cost, cmc, colors, color_identity, type_line,
	       types, subtypes, oracle_text, power, toughness, loyalty,
	       set_code, rarity, legalities, keywords`

const selectCardColumnsQualified = `
	SELECT cards.id, cards.name, cards.mana_cost, cards.cmc, cards.colors,
	       cards.color_identity, cards.type_line, cards.types, cards.subtypes,
	       cards.oracle_text, cards.power, cards.toughness, cards.loyalty,
	       cards.set_code, cards.rarity, cards.legalities, cards.keywords`

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*cards.Card, error) {
	var (
		card       cards.Card
		colors     string
		identity   string
		types      string
		subtypes   string
		legalities string
		keywords   string
	)

	err := row.Scan(
		&card.ID, &card.Name, &card.ManaCost, &card.CMC, &colors, &identity,
		&card.TypeLine, &types, &subtypes, &card.OracleText, &card.Power,
		&card.Toughness, &card.Loyalty, &card.SetCode, &card.Rarity,
		&legalities, &keywords,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(colors), &card.Colors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal colors: %w", err)
	}
	if err := json.Unmarshal([]byte(identity), &card.ColorIdentity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal color identity: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &card.Types); err != nil {
		return nil, fmt.Errorf("failed to unmarshal types: %w", err)
	}
	if err := json.Unmarshal([]byte(subtypes), &card.Subtypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtypes: %w", err)
	}
	if err := json.Unmarshal([]byte(legalities), &card.Legalities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legalities: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &card.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}

	return &card, nil
}

// ftsQuery quotes the user text so FTS treats it as tokens, not syntax.
func ftsQuery(text string) string {
	escaped := strings.ReplaceAll(text, `"`, `""`)
	return `"` + escaped + `"`
}
