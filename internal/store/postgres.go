package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/gandash/dash/internal/database"
)

// Postgres keeps every logical table in one JSONB-backed records table.
// It is a self-hosted stand-in for NocoDB with the same column names.
type Postgres struct {
	db     *database.DB
	tables map[string]bool
}

func NewPostgres(db *database.DB, tables ...string) *Postgres {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[strings.ToLower(t)] = true
	}
	return &Postgres{db: db, tables: known}
}

func (p *Postgres) resolve(table string) (string, error) {
	name := strings.ToLower(table)
	if !p.tables[name] {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return name, nil
}

func (p *Postgres) List(ctx context.Context, table string) ([]Record, error) {
	tbl, err := p.resolve(table)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.Pool.Query(ctx,
		`SELECT id, fields FROM records WHERE tbl = $1 ORDER BY id ASC`,
		tbl,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id int64
		rec := Record{}
		if err := rows.Scan(&id, &rec); err != nil {
			return nil, err
		}
		rec[IDField] = float64(id)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, table string, id int) (Record, error) {
	tbl, err := p.resolve(table)
	if err != nil {
		return nil, err
	}

	rec := Record{}
	err = p.db.Pool.QueryRow(ctx,
		`SELECT fields FROM records WHERE tbl = $1 AND id = $2`,
		tbl, id,
	).Scan(&rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	if err != nil {
		return nil, err
	}
	rec[IDField] = float64(id)
	return rec, nil
}

func (p *Postgres) Create(ctx context.Context, table string, fields Record) (int, error) {
	tbl, err := p.resolve(table)
	if err != nil {
		return 0, err
	}

	data := copyRecord(fields)
	delete(data, IDField)

	var id int64
	err = p.db.Pool.QueryRow(ctx,
		`INSERT INTO records (tbl, fields) VALUES ($1, $2::jsonb) RETURNING id`,
		tbl, map[string]any(data),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// Update merges fields into the stored document; JSON null clears a column.
func (p *Postgres) Update(ctx context.Context, table string, id int, fields Record) error {
	tbl, err := p.resolve(table)
	if err != nil {
		return err
	}

	data := copyRecord(fields)
	delete(data, IDField)

	tag, err := p.db.Pool.Exec(ctx,
		`UPDATE records SET fields = fields || $3::jsonb, updated_at = now() WHERE tbl = $1 AND id = $2`,
		tbl, id, map[string]any(data),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, table string, id int) error {
	tbl, err := p.resolve(table)
	if err != nil {
		return err
	}

	tag, err := p.db.Pool.Exec(ctx, `DELETE FROM records WHERE tbl = $1 AND id = $2`, tbl, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, table, id)
	}
	return nil
}
