package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ramonehamilton/deckforge/internal/apperr"
)

// VectorRecord holds a card embedding plus the compact metadata used for
// post-filtering search results without a catalog round trip.
type VectorRecord struct {
	CardID     string
	Embedding  []float32
	Name       string
	CMC        float64
	Colors     string // CSV of color letters
	Types      string // CSV of card types
	Rarity     string
	Legalities string // JSON format->status map
	UpdatedAt  time.Time
}

// VectorStore persists card embeddings in sqlite. Vectors are stored as
// little-endian float32 blobs.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a vector store backed by the given database.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// Upsert inserts or replaces one embedding record.
func (s *VectorStore) Upsert(ctx context.Context, rec *VectorRecord) error {
	blob, err := encodeVector(rec.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	query := `
		INSERT INTO card_vectors (
			card_id, embedding, dims, name, cmc, colors, types, rarity,
			legalities, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			embedding = excluded.embedding,
			dims = excluded.dims,
			name = excluded.name,
			cmc = excluded.cmc,
			colors = excluded.colors,
			types = excluded.types,
			rarity = excluded.rarity,
			legalities = excluded.legalities,
			updated_at = excluded.updated_at
	`
	_, err = s.db.conn.ExecContext(ctx, query,
		rec.CardID, blob, len(rec.Embedding), rec.Name, rec.CMC, rec.Colors,
		rec.Types, rec.Rarity, rec.Legalities, time.Now().UTC(),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to upsert vector", err)
	}
	return nil
}

// All streams every embedding record. The scan is sequential; similarity
// ranking happens in memory at the caller.
func (s *VectorStore) All(ctx context.Context) ([]*VectorRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT card_id, embedding, name, cmc, colors, types, rarity, legalities, updated_at
		FROM card_vectors`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to load vectors", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*VectorRecord
	for rows.Next() {
		var (
			rec  VectorRecord
			blob []byte
		)
		if err := rows.Scan(&rec.CardID, &blob, &rec.Name, &rec.CMC, &rec.Colors,
			&rec.Types, &rec.Rarity, &rec.Legalities, &rec.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to scan vector", err)
		}
		rec.Embedding, err = decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", rec.CardID, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to iterate vectors", err)
	}
	return records, nil
}

// Count returns the number of embedded cards.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_vectors`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to count vectors", err)
	}
	return n, nil
}

func encodeVector(v []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, f := range v {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		v[i] = math.Float32frombits(bits)
	}
	return v, nil
}
