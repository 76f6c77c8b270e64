//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/pkg/version"
)

const metadataTable = "salesmart_metadata"

// Metadata keys written by SaveMetadata.
const (
	MetaVersion    = "version"
	MetaSeededAt   = "seeded_at"
	MetaCustomers  = "customers"
	MetaProducts   = "products"
	MetaTxns       = "transactions"
	MetaRandomSeed = "seed"
)

const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// SaveMetadata records how the production dataset was generated. The
// version and seeded_at keys are always written alongside the given values.
func SaveMetadata(ctx context.Context, db DB, schema string, values map[string]string) error {
	table := quoteIdent(schema, metadataTable)
	if _, err := db.Exec(ctx, fmt.Sprintf(createMetadataTableSQL, table)); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	metadata := maps.Clone(values)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata[MetaVersion] = version.Short()
	metadata[MetaSeededAt] = time.Now().UTC().Format(time.RFC3339)

	for _, key := range slices.Sorted(maps.Keys(metadata)) {
		_, err := db.Exec(ctx, `
            INSERT INTO `+table+` (key, value) VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, metadata[key])
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("schema", schema).
		Int("keys", len(metadata)).
		Msg("Saved metadata")

	return nil
}

// GetAllMetadata returns every metadata value in the schema. A schema that
// was never seeded yields an empty map.
func GetAllMetadata(ctx context.Context, db DB, schema string) (map[string]string, error) {
	exists, err := MetadataExists(ctx, db, schema)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]string)
	if !exists {
		return metadata, nil
	}

	rows, err := db.Query(ctx, `SELECT key, value FROM `+quoteIdent(schema, metadataTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// MetadataExists checks if the metadata table exists in the schema.
func MetadataExists(ctx context.Context, db DB, schema string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = $1 AND table_name = $2
        )
    `, schema, metadataTable).Scan(&exists)
	return exists, err
}
