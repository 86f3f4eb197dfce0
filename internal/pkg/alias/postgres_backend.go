package alias

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PostgresBackend stores the table in two tables so several processes can
// share learned aliases.
type PostgresBackend struct {
	db *sql.DB
}

var _ EntryBackend = (*PostgresBackend)(nil)

const (
	upsertSourceSQL = `
		INSERT INTO alias_sources (source) VALUES ($1)
		ON CONFLICT (source) DO NOTHING`

	upsertNameSQL = `
		INSERT INTO alias_names (source, kind, raw_name, canonical_name, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source, kind, raw_name)
		DO UPDATE SET canonical_name = EXCLUDED.canonical_name, updated_at = NOW()
		WHERE alias_names.canonical_name <> EXCLUDED.canonical_name`
)

func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	b := &PostgresBackend{db: db}
	if err := b.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL alias storage initialized")
	return b, nil
}

func (b *PostgresBackend) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS alias_sources (
		source VARCHAR(200) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS alias_names (
		source VARCHAR(200) NOT NULL REFERENCES alias_sources(source),
		kind VARCHAR(20) NOT NULL,
		raw_name VARCHAR(500) NOT NULL,
		canonical_name VARCHAR(500) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (source, kind, raw_name)
	);

	CREATE INDEX IF NOT EXISTS idx_alias_names_canonical ON alias_names(kind, canonical_name);
	`
	_, err := b.db.ExecContext(ctx, query)
	return err
}

func (b *PostgresBackend) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{}

	rows, err := b.db.QueryContext(ctx, `SELECT source FROM alias_sources`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias sources: %w", err)
	}
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			rows.Close()
			return nil, err
		}
		snap[source] = newNames()
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = b.db.QueryContext(ctx, `SELECT source, kind, raw_name, canonical_name FROM alias_names`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alias names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, kind, raw, canonical string
		if err := rows.Scan(&source, &kind, &raw, &canonical); err != nil {
			return nil, err
		}
		n, ok := snap[source]
		if !ok {
			n = newNames()
			snap[source] = n
		}
		switch kind {
		case KindTeam.String():
			n.Teams[raw] = canonical
		case KindLeague.String():
			n.Leagues[raw] = canonical
		default:
			return nil, fmt.Errorf("unknown alias kind %q for source %q", kind, source)
		}
	}
	return snap, rows.Err()
}

func (b *PostgresBackend) Save(ctx context.Context, snap Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceStmt, err := tx.PrepareContext(ctx, upsertSourceSQL)
	if err != nil {
		return err
	}
	defer sourceStmt.Close()

	nameStmt, err := tx.PrepareContext(ctx, upsertNameSQL)
	if err != nil {
		return err
	}
	defer nameStmt.Close()

	for source, n := range snap {
		if _, err := sourceStmt.ExecContext(ctx, source); err != nil {
			return fmt.Errorf("failed to upsert source %q: %w", source, err)
		}
		for kind, m := range map[Kind]map[string]string{KindTeam: n.Teams, KindLeague: n.Leagues} {
			for raw, canonical := range m {
				if _, err := nameStmt.ExecContext(ctx, source, kind.String(), raw, canonical); err != nil {
					return fmt.Errorf("failed to upsert %s alias %q for %q: %w", kind, raw, source, err)
				}
			}
		}
	}

	return tx.Commit()
}

// SaveSource registers a source without touching its names.
func (b *PostgresBackend) SaveSource(ctx context.Context, source string) error {
	if _, err := b.db.ExecContext(ctx, upsertSourceSQL, source); err != nil {
		return fmt.Errorf("failed to upsert source %q: %w", source, err)
	}
	return nil
}

// SaveEntry upserts a single alias row and its source.
func (b *PostgresBackend) SaveEntry(ctx context.Context, e Entry) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertSourceSQL, e.Source); err != nil {
		return fmt.Errorf("failed to upsert source %q: %w", e.Source, err)
	}
	if _, err := tx.ExecContext(ctx, upsertNameSQL, e.Source, e.Kind.String(), e.Raw, e.Canonical); err != nil {
		return fmt.Errorf("failed to upsert %s alias %q for %q: %w", e.Kind, e.Raw, e.Source, err)
	}
	return tx.Commit()
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
