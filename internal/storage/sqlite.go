package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/pronouns/internal/pronoun"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite backend: persona pronouns plus the replacement log.
type Store struct {
	db *sql.DB
}

// Applied once per connection; a single connection keeps them in force.
var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

// Open opens or creates pronouns.db under dataDir and applies pending
// migrations. dataDir ":memory:" gives a throwaway database.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "pronouns.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type migration struct {
	version int
	file    string
}

// pendingMigrations lists embedded migrations not yet in schema_version,
// lowest version first.
func (s *Store) pendingMigrations() ([]migration, error) {
	applied, err := s.AppliedMigrations()
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	var pending []migration
	for _, f := range files {
		v, err := parseMigrationVersion(path.Base(f))
		if err != nil {
			return nil, err
		}
		if !done[v] {
			pending = append(pending, migration{version: v, file: f})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	pending, err := s.pendingMigrations()
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
func (s *Store) apply(ctx context.Context, m migration) error {
	body, err := migrationsFS.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.file, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("applying migration %d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("migration %q has no version prefix", filename)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %q: bad version: %w", filename, err)
	}
	return v, nil
}

// AppliedMigrations returns applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Persona pronouns ---

// LoadPronouns returns every stored record. NULL columns load as "".
func (s *Store) LoadPronouns(ctx context.Context) (map[string]pronoun.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id, subjective, objective, pos_det, pos_pro, reflexive
		FROM persona_pronouns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]pronoun.Record)
	for rows.Next() {
		var id string
		var sub, obj, det, pro, refl sql.NullString
		if err := rows.Scan(&id, &sub, &obj, &det, &pro, &refl); err != nil {
			return nil, err
		}
		result[id] = pronoun.Record{
			Subjective: sub.String,
			Objective:  obj.String,
			PosDet:     det.String,
			PosPro:     pro.String,
			Reflexive:  refl.String,
		}
	}
	return result, rows.Err()
}

// SavePronouns replaces the stored records with records in one transaction.
func (s *Store) SavePronouns(ctx context.Context, records map[string]pronoun.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM persona_pronouns"); err != nil {
		return fmt.Errorf("clearing persona_pronouns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO persona_pronouns (persona_id, subjective, objective, pos_det, pos_pro, reflexive, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for id, r := range records {
		if _, err := stmt.ExecContext(ctx, id, r.Subjective, r.Objective, r.PosDet, r.PosPro, r.Reflexive, now); err != nil {
			return fmt.Errorf("saving persona %q: %w", id, err)
		}
	}
	return tx.Commit()
}

// GetPronouns returns one persona's record.
func (s *Store) GetPronouns(ctx context.Context, personaID string) (pronoun.Record, error) {
	var sub, obj, det, pro, refl sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT subjective, objective, pos_det, pos_pro, reflexive
		FROM persona_pronouns WHERE persona_id = ?`, personaID,
	).Scan(&sub, &obj, &det, &pro, &refl)
	if err == sql.ErrNoRows {
		return pronoun.Record{}, ErrNotFound
	}
	if err != nil {
		return pronoun.Record{}, err
	}
	return pronoun.Record{
		Subjective: sub.String,
		Objective:  obj.String,
		PosDet:     det.String,
		PosPro:     pro.String,
		Reflexive:  refl.String,
	}, nil
}

// --- Replacements ---

func (s *Store) SaveReplacement(ctx context.Context, r Replacement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replacements (id, created_at, persona_id, mode, input, output)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.PersonaID, r.Mode, r.Input, r.Output,
	)
	return err
}

func (s *Store) RecentReplacements(ctx context.Context, limit int) ([]Replacement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, persona_id, mode, input, output
		FROM replacements ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Replacement
	for rows.Next() {
		var r Replacement
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.PersonaID, &r.Mode, &r.Input, &r.Output); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// PruneReplacements deletes all but the newest keep replacements and
// returns how many rows were removed.
func (s *Store) PruneReplacements(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM replacements WHERE id NOT IN (
			SELECT id FROM replacements ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
