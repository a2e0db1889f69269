package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sweetswap/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// CatalogRepository stores drinks and their substitutions
type CatalogRepository interface {
	FindDrinkByName(ctx context.Context, name string) (*models.Drink, error)
	CreateDrink(ctx context.Context, drink *models.Drink) error
	FindLatestSubstitution(ctx context.Context, drinkID int64) (*models.Substitution, error)
	FindSubstitutionByName(ctx context.Context, drinkID int64, substituteName string) (*models.Substitution, error)
	GetSubstitution(ctx context.Context, id int64) (*models.Substitution, error)
	ListSubstitutions(ctx context.Context, drinkID int64) ([]*models.Substitution, error)
	CreateSubstitution(ctx context.Context, sub *models.Substitution) error
	GetStats(ctx context.Context) (*CatalogStats, error)

	// WithTx runs fn against a repository bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(CatalogRepository) error) error
}

// CatalogStats counts catalog rows
type CatalogStats struct {
	Drinks        int `json:"drinks" db:"drinks"`
	Substitutions int `json:"substitutions" db:"substitutions"`
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type catalogRepository struct {
	db     *sqlx.DB
	q      querier
	inTx   bool
	logger *zap.Logger
}

// NewCatalogRepository creates the schema if needed and returns a repository
func NewCatalogRepository(db *sqlx.DB, logger *zap.Logger) (CatalogRepository, error) {
	repo := &catalogRepository{
		db:     db,
		q:      db,
		logger: logger,
	}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Catalog repository initialized", zap.String("driver", db.DriverName()))

	return repo, nil
}

// migrate creates tables
func (r *catalogRepository) migrate() error {
	schema := sqliteSchema
	if r.db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}

	_, err := r.db.Exec(schema)
	return err
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS drinks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT,
		ingredients TEXT,
		sugar_content REAL,
		caffeine_content REAL,
		flavor_profile TEXT,
		source TEXT NOT NULL DEFAULT 'seed'
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_drinks_name_lower ON drinks(lower(name));

	CREATE TABLE IF NOT EXISTS substitutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_drink_id INTEGER NOT NULL REFERENCES drinks(id),
		substitute_drink_id INTEGER REFERENCES drinks(id),
		substitute_name TEXT NOT NULL,
		substitute_notes TEXT,
		sugar_delta REAL,
		caffeine_delta REAL,
		source TEXT NOT NULL DEFAULT 'manual',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_substitutions_original ON substitutions(original_drink_id, created_at);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS drinks (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		ingredients TEXT,
		sugar_content DOUBLE PRECISION,
		caffeine_content DOUBLE PRECISION,
		flavor_profile TEXT,
		source TEXT NOT NULL DEFAULT 'seed'
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_drinks_name_lower ON drinks(lower(name));

	CREATE TABLE IF NOT EXISTS substitutions (
		id BIGSERIAL PRIMARY KEY,
		original_drink_id BIGINT NOT NULL REFERENCES drinks(id),
		substitute_drink_id BIGINT REFERENCES drinks(id),
		substitute_name TEXT NOT NULL,
		substitute_notes TEXT,
		sugar_delta DOUBLE PRECISION,
		caffeine_delta DOUBLE PRECISION,
		source TEXT NOT NULL DEFAULT 'manual',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_substitutions_original ON substitutions(original_drink_id, created_at);
	`

const drinkColumns = `id, name, category, ingredients, sugar_content, caffeine_content, flavor_profile, source`

const substitutionSelect = `
	SELECT s.id, s.original_drink_id, s.substitute_drink_id, s.substitute_name, s.substitute_notes,
	       s.sugar_delta, s.caffeine_delta, s.source, s.created_at, d.name AS original_drink_name
	FROM substitutions s
	LEFT JOIN drinks d ON d.id = s.original_drink_id`

// FindDrinkByName matches name ignoring case
func (r *catalogRepository) FindDrinkByName(ctx context.Context, name string) (*models.Drink, error) {
	query := r.q.Rebind(`SELECT ` + drinkColumns + ` FROM drinks WHERE lower(name) = lower(?)`)

	var drink models.Drink
	if err := r.q.GetContext(ctx, &drink, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find drink: %w", err)
	}
	return &drink, nil
}

// CreateDrink inserts a drink and sets its ID
func (r *catalogRepository) CreateDrink(ctx context.Context, drink *models.Drink) error {
	if drink.Source == "" {
		drink.Source = models.SourceSeed
	}

	query := r.q.Rebind(`
		INSERT INTO drinks (name, category, ingredients, sugar_content, caffeine_content, flavor_profile, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.q.QueryRowxContext(ctx, query,
		drink.Name,
		drink.Category,
		drink.Ingredients,
		drink.SugarContent,
		drink.CaffeineContent,
		drink.FlavorProfile,
		drink.Source,
	).Scan(&drink.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: drink %q", ErrDuplicate, drink.Name)
		}
		return fmt.Errorf("failed to save drink: %w", err)
	}

	return nil
}

// FindLatestSubstitution returns the most recently created substitution for a drink
func (r *catalogRepository) FindLatestSubstitution(ctx context.Context, drinkID int64) (*models.Substitution, error) {
	query := r.q.Rebind(substitutionSelect + `
		WHERE s.original_drink_id = ?
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`)

	return r.getSubstitution(ctx, query, drinkID)
}

// FindSubstitutionByName returns the substitution of drinkID named substituteName
func (r *catalogRepository) FindSubstitutionByName(ctx context.Context, drinkID int64, substituteName string) (*models.Substitution, error) {
	query := r.q.Rebind(substitutionSelect + `
		WHERE s.original_drink_id = ? AND s.substitute_name = ?
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`)

	return r.getSubstitution(ctx, query, drinkID, substituteName)
}

// GetSubstitution retrieves a substitution by ID
func (r *catalogRepository) GetSubstitution(ctx context.Context, id int64) (*models.Substitution, error) {
	query := r.q.Rebind(substitutionSelect + ` WHERE s.id = ?`)
	return r.getSubstitution(ctx, query, id)
}

func (r *catalogRepository) getSubstitution(ctx context.Context, query string, args ...interface{}) (*models.Substitution, error) {
	var sub models.Substitution
	if err := r.q.GetContext(ctx, &sub, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get substitution: %w", err)
	}
	return &sub, nil
}

// ListSubstitutions returns every substitution for a drink, newest first
func (r *catalogRepository) ListSubstitutions(ctx context.Context, drinkID int64) ([]*models.Substitution, error) {
	query := r.q.Rebind(substitutionSelect + `
		WHERE s.original_drink_id = ?
		ORDER BY s.created_at DESC, s.id DESC`)

	var subs []*models.Substitution
	if err := r.q.SelectContext(ctx, &subs, query, drinkID); err != nil {
		return nil, fmt.Errorf("failed to query substitutions: %w", err)
	}
	return subs, nil
}

// CreateSubstitution inserts a substitution, assigning its ID and creation time
func (r *catalogRepository) CreateSubstitution(ctx context.Context, sub *models.Substitution) error {
	if sub.Source == "" {
		sub.Source = models.SourceManual
	}
	sub.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	query := r.q.Rebind(`
		INSERT INTO substitutions (
			original_drink_id, substitute_drink_id, substitute_name, substitute_notes,
			sugar_delta, caffeine_delta, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.q.QueryRowxContext(ctx, query,
		sub.OriginalDrinkID,
		sub.SubstituteDrinkID,
		sub.SubstituteName,
		sub.SubstituteNotes,
		sub.SugarDelta,
		sub.CaffeineDelta,
		sub.Source,
		sub.CreatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("failed to save substitution: %w", err)
	}

	return nil
}

// GetStats returns row counts
func (r *catalogRepository) GetStats(ctx context.Context) (*CatalogStats, error) {
	var stats CatalogStats
	err := r.q.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM drinks) AS drinks,
			(SELECT COUNT(*) FROM substitutions) AS substitutions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog rows: %w", err)
	}
	return &stats, nil
}

// WithTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (r *catalogRepository) WithTx(ctx context.Context, fn func(CatalogRepository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	txRepo := &catalogRepository{
		db:     r.db,
		q:      tx,
		inTx:   true,
		logger: r.logger,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
