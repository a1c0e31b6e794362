package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"gmaps-scraper/models"
)

// PostgresWriter persists scraped businesses to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS businesses (
			id            SERIAL PRIMARY KEY,
			name          TEXT         NOT NULL,
			rating        NUMERIC(3,1),
			reviews_count INTEGER,
			category      TEXT         NOT NULL DEFAULT '',
			address       TEXT         NOT NULL DEFAULT '',
			phone         TEXT         NOT NULL DEFAULT '',
			website       TEXT         NOT NULL DEFAULT '',
			hours         TEXT         NOT NULL DEFAULT '',
			source_url    TEXT         UNIQUE NOT NULL,
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_businesses_rating   ON businesses(rating);
		CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category);
	`)
	return err
}

// Write batch-inserts businesses; already-seen source URLs are skipped.
func (pw *PostgresWriter) Write(businesses []*models.Business) error {
	if len(businesses) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(businesses); i += batchSize {
		end := i + batchSize
		if end > len(businesses) {
			end = len(businesses)
		}
		if err := pw.insertBatch(businesses[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.Business) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*9)

	for idx, b := range batch {
		base := idx * 9
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		valueArgs = append(valueArgs,
			b.Name, nullFloat(b.Rating), nullInt(b.ReviewsCount), b.Category,
			b.Address, b.Phone, b.Website, b.Hours, b.SourceURL)
	}

	query := fmt.Sprintf(`
		INSERT INTO businesses (name, rating, reviews_count, category, address, phone, website, hours, source_url)
		VALUES %s
		ON CONFLICT (source_url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored businesses — used by the insight service.
func (pw *PostgresWriter) FetchAll() ([]*models.Business, error) {
	rows, err := pw.db.Query(`
		SELECT name, rating, reviews_count, category, address, phone, website, hours, source_url, created_at
		FROM businesses
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var businesses []*models.Business
	for rows.Next() {
		b := &models.Business{}
		var (
			rating  sql.NullFloat64
			reviews sql.NullInt64
		)
		if err := rows.Scan(
			&b.Name, &rating, &reviews, &b.Category, &b.Address,
			&b.Phone, &b.Website, &b.Hours, &b.SourceURL, &b.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if rating.Valid {
			v := rating.Float64
			b.Rating = &v
		}
		if reviews.Valid {
			v := int(reviews.Int64)
			b.ReviewsCount = &v
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
