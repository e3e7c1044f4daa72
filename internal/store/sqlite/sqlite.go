package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"tradedominance/internal/model"
	"tradedominance/internal/providers"
	"tradedominance/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: migrate")
	}

	return s, nil
}

func (s *Store) Name() string {
	return "sqlite"
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) UpsertObservations(ctx context.Context, observations []model.Observation) (err error) {
	if len(observations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (
			dataset, indicator, ref_area, counterpart_area, period, value, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset, indicator, ref_area, counterpart_area, period)
		DO UPDATE SET
			value = excluded.value,
			ingested_at = excluded.ingested_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, observation := range observations {
		_, err = stmt.ExecContext(
			ctx,
			observation.Dataset,
			observation.Indicator,
			observation.ReportingArea,
			observation.Counterpart,
			observation.Period,
			observation.Value,
			now,
		)
		if err != nil {
			return errors.Wrapf(err, "sqlite: upsert %s/%s/%s", observation.ReportingArea, observation.Counterpart, observation.Period)
		}
	}

	return tx.Commit()
}

// Fetch returns archived observations matching query, ordered by area,
// period and counterpart. Periods are compared as strings, so a start of
// "2000" includes "2000-01".
func (s *Store) Fetch(ctx context.Context, query model.Query) ([]model.Observation, error) {
	sqlQuery := `
		SELECT dataset, indicator, ref_area, counterpart_area, period, value
		FROM observations
		WHERE 1 = 1
	`
	args := []any{}
	if strings.TrimSpace(query.Dataset) != "" {
		sqlQuery += " AND dataset = ?"
		args = append(args, query.Dataset)
	}
	if strings.TrimSpace(query.Indicator) != "" {
		sqlQuery += " AND indicator = ?"
		args = append(args, query.Indicator)
	}
	if len(query.ReportingAreas) > 0 {
		sqlQuery += " AND ref_area IN (" + placeholders(len(query.ReportingAreas)) + ")"
		for _, area := range query.ReportingAreas {
			args = append(args, area)
		}
	}
	if len(query.Counterparts) > 0 {
		sqlQuery += " AND counterpart_area IN (" + placeholders(len(query.Counterparts)) + ")"
		for _, counterpart := range query.Counterparts {
			args = append(args, counterpart)
		}
	}
	if strings.TrimSpace(query.StartPeriod) != "" {
		sqlQuery += " AND period >= ?"
		args = append(args, query.StartPeriod)
	}
	if strings.TrimSpace(query.EndPeriod) != "" {
		// "2005" must include "2005-12", so compare against the upper bound
		// of the prefix.
		sqlQuery += " AND period <= ?"
		args = append(args, query.EndPeriod+"\uffff")
	}
	sqlQuery += " ORDER BY ref_area, period, counterpart_area"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: query observations")
	}
	defer rows.Close()

	observations := make([]model.Observation, 0)
	for rows.Next() {
		var observation model.Observation
		if err := rows.Scan(
			&observation.Dataset,
			&observation.Indicator,
			&observation.ReportingArea,
			&observation.Counterpart,
			&observation.Period,
			&observation.Value,
		); err != nil {
			return nil, err
		}
		observations = append(observations, observation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return observations, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			dataset TEXT NOT NULL,
			indicator TEXT NOT NULL,
			ref_area TEXT NOT NULL,
			counterpart_area TEXT NOT NULL,
			period TEXT NOT NULL,
			value REAL NOT NULL,
			ingested_at TEXT NOT NULL,
			PRIMARY KEY (dataset, indicator, ref_area, counterpart_area, period)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

var (
	_ store.Store      = (*Store)(nil)
	_ providers.Source = (*Store)(nil)
)
