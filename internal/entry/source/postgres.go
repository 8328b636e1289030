package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// Postgres reads entries from a table with location, page, title, text and
// category columns.
type Postgres struct {
	DB    *sql.DB
	Table string
}

func (p *Postgres) Name() string { return "postgres:" + p.Table }

func (p *Postgres) Load(ctx context.Context) ([]entry.Entry, error) {
	query := fmt.Sprintf(
		`SELECT location, page, title, text, category FROM %s ORDER BY location`,
		pq.QuoteIdentifier(p.Table),
	)
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable(p.Name(), err)
	}
	defer rows.Close()

	entries := make([]entry.Entry, 0, 256)
	for rows.Next() {
		var e entry.Entry
		var category string
		if err := rows.Scan(&e.Location, &e.Page, &e.Title, &e.Text, &category); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		e.Category = entry.ParseCategory(category)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(p.Name(), err)
	}
	return entries, nil
}

// Import replaces the contents of table with entries, creating the table
// if needed. It runs in one transaction and bulk-loads with COPY.
func Import(ctx context.Context, db *postgres.Client, table string, entries []entry.Entry) error {
	ident := pq.QuoteIdentifier(table)
	err := db.Migrate(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	location TEXT NOT NULL,
	page     TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	text     TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT ''
)`, ident))
	if err != nil {
		return err
	}
	return db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+ident); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, "location", "page", "title", "text", "category"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Location, e.Page, e.Title, e.Text, string(e.Category)); err != nil {
				return fmt.Errorf("copying entry %q: %w", e.Location, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy: %w", err)
		}
		return nil
	})
}
