package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/utils"

	"github.com/lib/pq"
)

// ErrCarNotFound is returned when an update targets a car id that does not exist
var ErrCarNotFound = errors.New("car not found")

// PostgresStore reads run configuration and writes inventory changes
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens the database and pings it
func NewPostgresStore(ctx context.Context, connStr string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresStore{db: db, logger: logger}, nil
}

// EnsureSchema creates the scraper's tables and indexes if they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS dealers (
		id      UUID PRIMARY KEY,
		name    TEXT,
		website TEXT
	);

	CREATE TABLE IF NOT EXISTS target_models (
		id                 UUID PRIMARY KEY,
		forbidden_keywords TEXT[],
		max_price          INTEGER
	);

	CREATE TABLE IF NOT EXISTS insurance_rules (
		id              UUID PRIMARY KEY,
		must_contain    TEXT[]  NOT NULL DEFAULT '{}',
		insurance_group TEXT    NOT NULL,
		position        INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS cars (
		id              UUID PRIMARY KEY,
		dealer_id       UUID        NOT NULL,
		vrm             TEXT        NOT NULL,
		title           TEXT        NOT NULL,
		price           INTEGER     NOT NULL,
		mileage         INTEGER,
		year            INTEGER,
		image_url       TEXT,
		transmission    TEXT,
		fuel            TEXT,
		doors           INTEGER,
		insurance_group TEXT,
		status          TEXT        NOT NULL DEFAULT 'active',
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_cars_dealer_vrm ON cars (dealer_id, vrm);
	CREATE INDEX IF NOT EXISTS idx_cars_status     ON cars (status);

	CREATE TABLE IF NOT EXISTS review_queue (
		id           BIGSERIAL PRIMARY KEY,
		dealer_id    UUID        NOT NULL,
		vrm          TEXT        NOT NULL,
		listing_key  TEXT        NOT NULL,
		title        TEXT        NOT NULL,
		price        INTEGER     NOT NULL,
		mileage      INTEGER,
		year         INTEGER,
		image_url    TEXT,
		transmission TEXT,
		fuel         TEXT,
		doors        INTEGER,
		reason       TEXT,
		status       TEXT        NOT NULL DEFAULT 'pending',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (dealer_id, listing_key)
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.upgradeSchema(ctx); err != nil {
		return err
	}
	s.logger.Info("Tables are ready")
	return nil
}

// upgradeStatements add the columns and indexes this scraper relies on to
// tables created before they existed. Legacy review rows get a key derived
// from their id so the unique index can be built over them.
var upgradeStatements = []string{
	`ALTER TABLE insurance_rules ADD COLUMN IF NOT EXISTS position INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE review_queue ADD COLUMN IF NOT EXISTS listing_key TEXT`,
	`ALTER TABLE review_queue ADD COLUMN IF NOT EXISTS reason TEXT`,
	`ALTER TABLE review_queue ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
	`ALTER TABLE review_queue ADD COLUMN IF NOT EXISTS last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
	`UPDATE review_queue SET listing_key = 'legacy-' || id::text WHERE listing_key IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_queue_dealer_key ON review_queue (dealer_id, listing_key)`,
}

func (s *PostgresStore) upgradeSchema(ctx context.Context) error {
	for _, stmt := range upgradeStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to upgrade schema (%s): %w", stmt, err)
		}
	}
	return nil
}

// LoadDealers returns every dealer with a website
func (s *PostgresStore) LoadDealers(ctx context.Context) ([]models.Dealer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website FROM dealers WHERE website IS NOT NULL AND website <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query dealers: %w", err)
	}
	defer rows.Close()

	var dealers []models.Dealer
	for rows.Next() {
		var d models.Dealer
		if err := rows.Scan(&d.ID, &d.Website); err != nil {
			return nil, fmt.Errorf("scan dealer: %w", err)
		}
		d.Website = strings.TrimSpace(d.Website)
		dealers = append(dealers, d)
	}
	return dealers, rows.Err()
}

// LoadTargetModels returns the forbidden keywords and price ceilings
func (s *PostgresStore) LoadTargetModels(ctx context.Context) ([]models.TargetModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, forbidden_keywords, max_price::bigint FROM target_models`)
	if err != nil {
		return nil, fmt.Errorf("query target models: %w", err)
	}
	defer rows.Close()

	var targets []models.TargetModel
	for rows.Next() {
		var (
			tm       models.TargetModel
			maxPrice sql.NullInt64
		)
		if err := rows.Scan(&tm.ID, pq.Array(&tm.ForbiddenKeywords), &maxPrice); err != nil {
			return nil, fmt.Errorf("scan target model: %w", err)
		}
		if maxPrice.Valid {
			v := maxPrice.Int64
			tm.MaxPrice = &v
		}
		targets = append(targets, tm)
	}
	return targets, rows.Err()
}

// LoadInsuranceRules returns the rules in evaluation order. Stores without a
// position column are ordered by id.
func (s *PostgresStore) LoadInsuranceRules(ctx context.Context) ([]models.InsuranceRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, must_contain, insurance_group, position FROM insurance_rules ORDER BY position, id`)
	if isUndefinedColumn(err) {
		s.logger.Warn("insurance_rules has no position column, ordering rules by id")
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, must_contain, insurance_group, 0 FROM insurance_rules ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("query insurance rules: %w", err)
	}
	defer rows.Close()

	var rules []models.InsuranceRule
	for rows.Next() {
		var r models.InsuranceRule
		if err := rows.Scan(&r.ID, pq.Array(&r.MustContain), &r.InsuranceGroup, &r.Position); err != nil {
			return nil, fmt.Errorf("scan insurance rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// LoadKnownCars returns the identity, price and status of every active or sold car
func (s *PostgresStore) LoadKnownCars(ctx context.Context) ([]models.Car, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dealer_id, vrm, price::bigint, status FROM cars WHERE status IN ('active', 'sold')`)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		var (
			c      models.Car
			status string
		)
		if err := rows.Scan(&c.ID, &c.DealerID, &c.VRM, &c.Price, &status); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		c.Status = models.CarStatus(status)
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// InsertCar inserts a newly observed car
func (s *PostgresStore) InsertCar(ctx context.Context, c *models.Car) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cars (id, dealer_id, vrm, title, price, mileage, year, image_url,
			transmission, fuel, doors, insurance_group, status, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.DealerID, c.VRM, c.Title, c.Price,
		nullInt(c.Mileage), nullInt(c.Year), nullString(c.ImageURL),
		nullString(c.Transmission), nullString(c.Fuel), nullInt(c.Doors),
		c.InsuranceGroup, string(c.Status), c.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("insert car %s: %w", c.VRM, err)
	}
	return nil
}

// UpdateCar refreshes last_seen and, when set, price and status
func (s *PostgresStore) UpdateCar(ctx context.Context, upd models.CarUpdate) error {
	sets := []string{"last_seen = $1"}
	args := []interface{}{upd.LastSeen}
	if upd.Price != nil {
		args = append(args, *upd.Price)
		sets = append(sets, fmt.Sprintf("price = $%d", len(args)))
	}
	if upd.Reactivate {
		sets = append(sets, "status = 'active'")
	}
	args = append(args, upd.ID)
	query := fmt.Sprintf("UPDATE cars SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update car %s: %w", upd.VRM, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update car %s: %w", upd.VRM, ErrCarNotFound)
	}
	return nil
}

// MarkSold flips an active car to sold; already sold cars are left alone
func (s *PostgresStore) MarkSold(ctx context.Context, carID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cars SET status = 'sold' WHERE id = $1 AND status = 'active'`, carID)
	if err != nil {
		return fmt.Errorf("mark car %s sold: %w", carID, err)
	}
	return nil
}

// UpsertReview queues a listing for manual classification. A pending row for
// the same listing key is refreshed; rows a reviewer already handled are kept.
func (s *PostgresStore) UpsertReview(ctx context.Context, item *models.ReviewItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (dealer_id, vrm, listing_key, title, price, mileage, year,
			image_url, transmission, fuel, doors, reason, status, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (dealer_id, listing_key) DO UPDATE
		SET price = EXCLUDED.price, last_seen = EXCLUDED.last_seen
		WHERE review_queue.status = 'pending'`,
		item.DealerID, item.VRM, item.ListingKey, item.Title, item.Price,
		nullInt(item.Mileage), nullInt(item.Year), nullString(item.ImageURL),
		nullString(item.Transmission), nullString(item.Fuel), nullInt(item.Doors),
		item.Reason, string(item.Status), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert review item %s: %w", item.ListingKey, err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return int64(n)
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// isUndefinedColumn reports a Postgres undefined_column (42703) error
func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42703"
}
