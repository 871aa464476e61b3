package workday

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const selectRecordsQuery = `
	SELECT to_char(work_date, 'YYYY-MM-DD') AS work_date, status, parcels, letters,
	       route_duration, office_duration, total_duration, miles,
	       mood, notes, annotations
	FROM work_days
	ORDER BY work_date ASC`

type recordRow struct {
	WorkDate       string          `db:"work_date"`
	Status         sql.NullString  `db:"status"`
	Parcels        sql.NullFloat64 `db:"parcels"`
	Letters        sql.NullFloat64 `db:"letters"`
	RouteDuration  sql.NullFloat64 `db:"route_duration"`
	OfficeDuration sql.NullFloat64 `db:"office_duration"`
	TotalDuration  sql.NullFloat64 `db:"total_duration"`
	Miles          sql.NullFloat64 `db:"miles"`
	Mood           sql.NullString  `db:"mood"`
	Notes          sql.NullString  `db:"notes"`
	Annotations    sql.NullString  `db:"annotations"`
}

// PostgresSource reads the row history from the work_days table.
type PostgresSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresSource wraps an open database handle.
func NewPostgresSource(db *sqlx.DB, timeout time.Duration) *PostgresSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresSource{db: db, timeout: timeout}
}

// OpenPostgresSource connects to dsn and verifies the connection.
func OpenPostgresSource(dsn string, timeout time.Duration) (*PostgresSource, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresSource(db, timeout), nil
}

// Close releases the database handle.
func (p *PostgresSource) Close() error {
	return p.db.Close()
}

// Records implements Source.
func (p *PostgresSource) Records(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var rows []recordRow
	if err := p.db.SelectContext(ctx, &rows, selectRecordsQuery); err != nil {
		return nil, fmt.Errorf("failed to query work days: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (row recordRow) toRecord() Record {
	return Record{
		Date:           row.WorkDate,
		Status:         Status(row.Status.String),
		Parcels:        nullCount(row.Parcels),
		Letters:        nullCount(row.Letters),
		RouteDuration:  nullOptional(row.RouteDuration),
		OfficeDuration: nullOptional(row.OfficeDuration),
		TotalDuration:  nullOptional(row.TotalDuration),
		Miles:          nullOptional(row.Miles),
		Mood:           row.Mood.String,
		Notes:          row.Notes.String,
		Annotations:    row.Annotations.String,
	}
}

func nullCount(v sql.NullFloat64) int {
	if !v.Valid || v.Float64 < 0 {
		return 0
	}
	return int(v.Float64 + 0.5)
}

func nullOptional(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
