package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/resilience"
)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	pingCfg := resilience.DefaultRetryConfig()
	pingCfg.OnRetry = resilience.RetryLogger("postgres", "ping")
	err = resilience.Do(ctx, pingCfg, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id      BIGINT PRIMARY KEY,
	name    TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city    TEXT NOT NULL DEFAULT '',
	state   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS aliases (
	id          BIGSERIAL PRIMARY KEY,
	property_id BIGINT NOT NULL REFERENCES properties(id),
	alias_name  TEXT NOT NULL,
	alias_type  TEXT NOT NULL DEFAULT 'common_name',
	is_primary  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(property_id, alias_name)
);

CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	content            TEXT NOT NULL DEFAULT '',
	target_property_id BIGINT REFERENCES properties(id),
	uploaded_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_outcomes (
	id                  TEXT PRIMARY KEY,
	document_id         TEXT NOT NULL,
	extracted_name      TEXT NOT NULL DEFAULT '',
	matched_property_id BIGINT,
	database_name       TEXT NOT NULL DEFAULT '',
	confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	match_type          TEXT NOT NULL DEFAULT 'none',
	suggestions         JSONB,
	needs_review        BOOLEAN NOT NULL DEFAULT FALSE,
	message             TEXT NOT NULL DEFAULT '',
	resolution_action   TEXT NOT NULL DEFAULT 'pending',
	reviewer            TEXT NOT NULL DEFAULT '',
	corrected_name      TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	reviewed_at         TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_aliases_name ON aliases(alias_name);
CREATE INDEX IF NOT EXISTS idx_outcomes_document ON validation_outcomes(document_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_needs_review ON validation_outcomes(needs_review);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListProperties(ctx context.Context) ([]model.Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, address, city, state FROM properties ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list properties")
	}
	defer rows.Close()

	var props []model.Property
	for rows.Next() {
		var p model.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.State); err != nil {
			return nil, eris.Wrap(err, "postgres: scan property")
		}
		props = append(props, p)
	}
	return props, eris.Wrap(rows.Err(), "postgres: list properties iterate")
}

func (s *PostgresStore) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	var p model.Property
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, address, city, state FROM properties WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get property %d", id)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProperty(ctx context.Context, p *model.Property) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO properties (id, name, address, city, state) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address,
		 city = EXCLUDED.city, state = EXCLUDED.state`,
		p.ID, p.Name, p.Address, p.City, p.State,
	)
	return eris.Wrap(err, "postgres: upsert property")
}

func (s *PostgresStore) InsertAlias(ctx context.Context, alias model.Alias) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO aliases (property_id, alias_name, alias_type, is_primary)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (property_id, alias_name) DO NOTHING`,
		alias.PropertyID, alias.Name, string(alias.Type), alias.IsPrimary,
	)
	return eris.Wrap(err, "postgres: insert alias")
}

func (s *PostgresStore) DeleteAlias(ctx context.Context, propertyID int64, aliasName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM aliases WHERE property_id = $1 AND LOWER(alias_name) = LOWER($2)`,
		propertyID, aliasName,
	)
	return eris.Wrap(err, "postgres: delete alias")
}

const pgAliasSelect = `
SELECT a.id, a.property_id, p.name, a.alias_name, a.alias_type, a.is_primary, a.created_at
FROM aliases a
JOIN properties p ON p.id = a.property_id`

func (s *PostgresStore) ListAliases(ctx context.Context) ([]model.Alias, error) {
	rows, err := s.pool.Query(ctx, pgAliasSelect+` ORDER BY a.id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list aliases")
	}
	defer rows.Close()
	return scanPgAliases(rows)
}

func (s *PostgresStore) ListAliasesForProperty(ctx context.Context, propertyID int64) ([]model.Alias, error) {
	rows, err := s.pool.Query(ctx,
		pgAliasSelect+` WHERE a.property_id = $1 ORDER BY a.id`, propertyID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list aliases for property %d", propertyID)
	}
	defer rows.Close()
	return scanPgAliases(rows)
}

func (s *PostgresStore) SearchAliases(ctx context.Context, term string) ([]model.Alias, error) {
	rows, err := s.pool.Query(ctx,
		pgAliasSelect+` WHERE a.alias_name ILIKE '%' || $1 || '%' ORDER BY a.id`, term)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search aliases")
	}
	defer rows.Close()
	return scanPgAliases(rows)
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, filename, content, target_property_id, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET filename = EXCLUDED.filename,
		 content = EXCLUDED.content, target_property_id = EXCLUDED.target_property_id`,
		doc.ID, doc.Filename, doc.Content, doc.TargetPropertyID, doc.UploadedAt,
	)
	return eris.Wrap(err, "postgres: upsert document")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, content, target_property_id, uploaded_at FROM documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.Filename, &d.Content, &d.TargetPropertyID, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}
	return &d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	// LIMIT NULL is unbounded, matching Limit <= 0 meaning "everything".
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, content, target_property_id, uploaded_at
		 FROM documents ORDER BY uploaded_at, id LIMIT $1 OFFSET $2`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.Content, &d.TargetPropertyID, &d.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) InsertOutcome(ctx context.Context, outcome *model.ValidationOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}

	var suggestions []byte
	if len(outcome.Suggestions) > 0 {
		var err error
		suggestions, err = json.Marshal(outcome.Suggestions)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal suggestions")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO validation_outcomes
		 (id, document_id, extracted_name, matched_property_id, database_name, confidence,
		  status, match_type, suggestions, needs_review, message, resolution_action,
		  reviewer, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		outcome.ID, outcome.DocumentID, outcome.ExtractedName, outcome.MatchedPropertyID,
		outcome.DatabaseName, outcome.Confidence, string(outcome.Status),
		string(outcome.MatchType), suggestions, outcome.NeedsReview, outcome.Message,
		string(outcome.Resolution), outcome.Reviewer, outcome.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert outcome")
}

const pgOutcomeSelect = `
SELECT id, document_id, extracted_name, matched_property_id, database_name, confidence,
       status, match_type, suggestions, needs_review, message, resolution_action,
       reviewer, created_at, reviewed_at
FROM validation_outcomes`

func (s *PostgresStore) GetOutcomeByDocument(ctx context.Context, documentID string) (*model.ValidationOutcome, error) {
	row := s.pool.QueryRow(ctx,
		pgOutcomeSelect+` WHERE document_id = $1 ORDER BY created_at DESC LIMIT 1`,
		documentID,
	)
	o, err := scanPgOutcome(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get outcome for document %s", documentID)
	}
	return o, nil
}

func (s *PostgresStore) ListOutcomesNeedingReview(ctx context.Context, limit int) ([]model.ValidationOutcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		pgOutcomeSelect+` WHERE needs_review AND resolution_action = 'pending'
		 ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes needing review")
	}
	defer rows.Close()

	var outcomes []model.ValidationOutcome
	for rows.Next() {
		o, err := scanPgOutcome(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) UpdateOutcomeResolution(ctx context.Context, documentID string, res ResolutionUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_outcomes
		 SET resolution_action = $1, reviewer = $2, reviewed_at = now(),
		     matched_property_id = COALESCE($3, matched_property_id),
		     corrected_name = $4
		 WHERE document_id = $5`,
		string(res.Action), res.Reviewer, res.MatchedPropertyID, res.CorrectedName, documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update resolution for document %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("outcome not found: %s", documentID)
	}
	return nil
}

// helpers

func scanPgAliases(rows pgx.Rows) ([]model.Alias, error) {
	var aliases []model.Alias
	for rows.Next() {
		var a model.Alias
		var aliasType string
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.PropertyName, &a.Name, &aliasType, &a.IsPrimary, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alias")
		}
		a.Type = model.AliasType(aliasType)
		aliases = append(aliases, a)
	}
	return aliases, eris.Wrap(rows.Err(), "postgres: aliases iterate")
}

func scanPgOutcome(row pgx.Row) (*model.ValidationOutcome, error) {
	var o model.ValidationOutcome
	var status, matchType, resolution string
	var suggestions []byte
	var reviewedAt *time.Time

	err := row.Scan(&o.ID, &o.DocumentID, &o.ExtractedName, &o.MatchedPropertyID,
		&o.DatabaseName, &o.Confidence, &status, &matchType, &suggestions,
		&o.NeedsReview, &o.Message, &resolution, &o.Reviewer, &o.CreatedAt, &reviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.Status = model.MatchStatus(status)
	o.MatchType = model.MatchType(matchType)
	o.Resolution = model.ResolutionAction(resolution)
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &o.Suggestions); err != nil {
			return nil, eris.Wrap(err, "unmarshal suggestions")
		}
	}
	o.ReviewedAt = reviewedAt
	return &o, nil
}
