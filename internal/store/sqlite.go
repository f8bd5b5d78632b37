package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/propmatch-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city    TEXT NOT NULL DEFAULT '',
	state   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS aliases (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	property_id INTEGER NOT NULL REFERENCES properties(id),
	alias_name  TEXT NOT NULL,
	alias_type  TEXT NOT NULL DEFAULT 'common_name',
	is_primary  INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(property_id, alias_name)
);

CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	content            TEXT NOT NULL DEFAULT '',
	target_property_id INTEGER REFERENCES properties(id),
	uploaded_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS validation_outcomes (
	id                  TEXT PRIMARY KEY,
	document_id         TEXT NOT NULL,
	extracted_name      TEXT NOT NULL DEFAULT '',
	matched_property_id INTEGER,
	database_name       TEXT NOT NULL DEFAULT '',
	confidence          REAL NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	match_type          TEXT NOT NULL DEFAULT 'none',
	suggestions         TEXT,
	needs_review        INTEGER NOT NULL DEFAULT 0,
	message             TEXT NOT NULL DEFAULT '',
	resolution_action   TEXT NOT NULL DEFAULT 'pending',
	reviewer            TEXT NOT NULL DEFAULT '',
	corrected_name      TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	reviewed_at         DATETIME
);

CREATE INDEX IF NOT EXISTS idx_aliases_name ON aliases(alias_name);
CREATE INDEX IF NOT EXISTS idx_outcomes_document ON validation_outcomes(document_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_needs_review ON validation_outcomes(needs_review);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListProperties(ctx context.Context) ([]model.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, city, state FROM properties ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list properties")
	}
	defer rows.Close()

	var props []model.Property
	for rows.Next() {
		var p model.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.State); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan property")
		}
		props = append(props, p)
	}
	return props, eris.Wrap(rows.Err(), "sqlite: list properties iterate")
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	var p model.Property
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, city, state FROM properties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.State)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get property %d", id)
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertProperty(ctx context.Context, p *model.Property) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, name, address, city, state) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address,
		 city = excluded.city, state = excluded.state`,
		p.ID, p.Name, p.Address, p.City, p.State,
	)
	return eris.Wrap(err, "sqlite: upsert property")
}

func (s *SQLiteStore) InsertAlias(ctx context.Context, alias model.Alias) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (property_id, alias_name, alias_type, is_primary, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(property_id, alias_name) DO NOTHING`,
		alias.PropertyID, alias.Name, string(alias.Type), alias.IsPrimary, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert alias")
}

func (s *SQLiteStore) DeleteAlias(ctx context.Context, propertyID int64, aliasName string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM aliases WHERE property_id = ? AND alias_name = ? COLLATE NOCASE`,
		propertyID, aliasName,
	)
	return eris.Wrap(err, "sqlite: delete alias")
}

const sqliteAliasSelect = `
SELECT a.id, a.property_id, p.name, a.alias_name, a.alias_type, a.is_primary, a.created_at
FROM aliases a
JOIN properties p ON p.id = a.property_id`

func (s *SQLiteStore) ListAliases(ctx context.Context) ([]model.Alias, error) {
	rows, err := s.db.QueryContext(ctx, sqliteAliasSelect+` ORDER BY a.id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list aliases")
	}
	defer rows.Close()
	return scanAliases(rows)
}

func (s *SQLiteStore) ListAliasesForProperty(ctx context.Context, propertyID int64) ([]model.Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteAliasSelect+` WHERE a.property_id = ? ORDER BY a.id`, propertyID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list aliases for property %d", propertyID)
	}
	defer rows.Close()
	return scanAliases(rows)
}

func (s *SQLiteStore) SearchAliases(ctx context.Context, term string) ([]model.Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteAliasSelect+` WHERE a.alias_name LIKE '%' || ? || '%' ORDER BY a.id`, term)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search aliases")
	}
	defer rows.Close()
	return scanAliases(rows)
}

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, content, target_property_id, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET filename = excluded.filename,
		 content = excluded.content, target_property_id = excluded.target_property_id`,
		doc.ID, doc.Filename, doc.Content, doc.TargetPropertyID, doc.UploadedAt,
	)
	return eris.Wrap(err, "sqlite: upsert document")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, content, target_property_id, uploaded_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.Content, &d.TargetPropertyID, &d.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", id)
	}
	return &d, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, filename, content, target_property_id, uploaded_at
	          FROM documents ORDER BY uploaded_at, id`
	var args []any
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// OFFSET requires a LIMIT clause; -1 is unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.Content, &d.TargetPropertyID, &d.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) InsertOutcome(ctx context.Context, outcome *model.ValidationOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}

	suggestions, err := marshalSuggestions(outcome.Suggestions)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validation_outcomes
		 (id, document_id, extracted_name, matched_property_id, database_name, confidence,
		  status, match_type, suggestions, needs_review, message, resolution_action,
		  reviewer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID, outcome.DocumentID, outcome.ExtractedName, outcome.MatchedPropertyID,
		outcome.DatabaseName, outcome.Confidence, string(outcome.Status),
		string(outcome.MatchType), suggestions, outcome.NeedsReview, outcome.Message,
		string(outcome.Resolution), outcome.Reviewer, outcome.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert outcome")
}

const sqliteOutcomeSelect = `
SELECT id, document_id, extracted_name, matched_property_id, database_name, confidence,
       status, match_type, suggestions, needs_review, message, resolution_action,
       reviewer, created_at, reviewed_at
FROM validation_outcomes`

func (s *SQLiteStore) GetOutcomeByDocument(ctx context.Context, documentID string) (*model.ValidationOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		sqliteOutcomeSelect+` WHERE document_id = ? ORDER BY created_at DESC LIMIT 1`,
		documentID,
	)
	o, err := scanOutcome(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get outcome for document %s", documentID)
	}
	return o, nil
}

func (s *SQLiteStore) ListOutcomesNeedingReview(ctx context.Context, limit int) ([]model.ValidationOutcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		sqliteOutcomeSelect+` WHERE needs_review = 1 AND resolution_action = 'pending'
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outcomes needing review")
	}
	defer rows.Close()

	var outcomes []model.ValidationOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) UpdateOutcomeResolution(ctx context.Context, documentID string, res ResolutionUpdate) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE validation_outcomes
		 SET resolution_action = ?, reviewer = ?, reviewed_at = ?,
		     matched_property_id = COALESCE(?, matched_property_id),
		     corrected_name = ?
		 WHERE document_id = ?`,
		string(res.Action), res.Reviewer, time.Now().UTC(),
		res.MatchedPropertyID, res.CorrectedName, documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update resolution for document %s", documentID)
	}
	return checkRowsAffected(result, "outcome", documentID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAliases(rows *sql.Rows) ([]model.Alias, error) {
	var aliases []model.Alias
	for rows.Next() {
		var a model.Alias
		var aliasType string
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.PropertyName, &a.Name, &aliasType, &a.IsPrimary, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alias")
		}
		a.Type = model.AliasType(aliasType)
		aliases = append(aliases, a)
	}
	return aliases, eris.Wrap(rows.Err(), "sqlite: aliases iterate")
}

func scanOutcome(row scannable) (*model.ValidationOutcome, error) {
	var o model.ValidationOutcome
	var status, matchType, resolution string
	var suggestions sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(&o.ID, &o.DocumentID, &o.ExtractedName, &o.MatchedPropertyID,
		&o.DatabaseName, &o.Confidence, &status, &matchType, &suggestions,
		&o.NeedsReview, &o.Message, &resolution, &o.Reviewer, &o.CreatedAt, &reviewedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.Status = model.MatchStatus(status)
	o.MatchType = model.MatchType(matchType)
	o.Resolution = model.ResolutionAction(resolution)
	if suggestions.Valid && suggestions.String != "" {
		if err := json.Unmarshal([]byte(suggestions.String), &o.Suggestions); err != nil {
			return nil, eris.Wrap(err, "unmarshal suggestions")
		}
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		o.ReviewedAt = &t
	}
	return &o, nil
}

func marshalSuggestions(suggestions []string) (any, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return nil, eris.Wrap(err, "marshal suggestions")
	}
	return string(data), nil
}
