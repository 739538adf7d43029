// TrustEdge
// Copyright (C) 2025 TrustEdge-Labs
//
// This file is part of TrustEdge.
//
// TrustEdge is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TrustEdge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with TrustEdge. If not, see <https://www.gnu.org/licenses/>.

package softwarehsm

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// PgMetadataStore mirrors the directory-based metadata.json index in a
// Postgres table, for deployments running several software-hsm
// instances against one shared directory of key files (the files
// themselves stay on the shared volume; only the metadata index moves
// to a database so concurrent instances see a consistent view). The
// file-backed metadataFile remains the default per §4.5; this is an
// opt-in alternative a caller wires in explicitly.
type PgMetadataStore struct {
	pool *pgxpool.Pool
}

// NewPgMetadataStore connects to dsn and ensures the backing table
// exists.
func NewPgMetadataStore(ctx context.Context, dsn string) (*PgMetadataStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "connecting to metadata database", err)
	}
	store := &PgMetadataStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PgMetadataStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS trustedge_hsm_keys (
	key_id       TEXT PRIMARY KEY,
	description  TEXT NOT NULL DEFAULT '',
	algorithm    TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	last_used    TIMESTAMPTZ NOT NULL
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return errs.Wrap(errs.KindInternal, "creating metadata table", err)
	}
	return nil
}

// Put upserts one key's metadata row.
func (s *PgMetadataStore) Put(ctx context.Context, keyIDHex, description, algorithm string, createdAt, lastUsed time.Time) error {
	const stmt = `
INSERT INTO trustedge_hsm_keys (key_id, description, algorithm, created_at, last_used)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key_id) DO UPDATE SET
	description = EXCLUDED.description,
	algorithm   = EXCLUDED.algorithm,
	last_used   = EXCLUDED.last_used`
	if _, err := s.pool.Exec(ctx, stmt, keyIDHex, description, algorithm, createdAt, lastUsed); err != nil {
		return errs.Wrap(errs.KindInternal, "upserting key metadata", err)
	}
	return nil
}

// TouchLastUsed bumps one key's last_used timestamp.
func (s *PgMetadataStore) TouchLastUsed(ctx context.Context, keyIDHex string) error {
	const stmt = `UPDATE trustedge_hsm_keys SET last_used = $2 WHERE key_id = $1`
	tag, err := s.pool.Exec(ctx, stmt, keyIDHex, time.Now())
	if err != nil {
		return errs.Wrap(errs.KindInternal, "touching key metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrKeyNotFound
	}
	return nil
}

// pgKeyRow is one row of a metadata listing.
type pgKeyRow struct {
	KeyIDHex    string
	Description string
	Algorithm   string
	CreatedAt   time.Time
	LastUsed    time.Time
}

// List returns every key row, for ListKeys-style callers.
func (s *PgMetadataStore) List(ctx context.Context) ([]pgKeyRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT key_id, description, algorithm, created_at, last_used FROM trustedge_hsm_keys`)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "listing key metadata", err)
	}
	defer rows.Close()

	var out []pgKeyRow
	for rows.Next() {
		var row pgKeyRow
		if err := rows.Scan(&row.KeyIDHex, &row.Description, &row.Algorithm, &row.CreatedAt, &row.LastUsed); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "scanning key metadata row", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "reading key metadata rows", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *PgMetadataStore) Close() {
	s.pool.Close()
}
