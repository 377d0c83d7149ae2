package postgres

import (
	"context"
	"database/sql"

	"logstream-srv/internal/logevent/repository"
	"logstream-srv/internal/model"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"
)

func (r *implRepository) BulkInsert(ctx context.Context, events []model.LogEvent) (repository.BulkResult, error) {
	var res repository.BulkResult
	if len(events) == 0 {
		return res, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.l.Errorf(ctx, "internal.logevent.repository.postgres.BulkInsert.BeginTx: %v", err)
		return repository.BulkResult{Failed: len(events)}, errors.Wrap(err, "begin bulk insert")
	}

	for i, e := range events {
		stored, err := r.insertOne(ctx, tx, e)
		if err != nil {
			// The savepoint itself could not be managed; the tx is unusable.
			_ = tx.Rollback()
			r.l.Errorf(ctx, "internal.logevent.repository.postgres.BulkInsert.savepoint: %v", err)
			return repository.BulkResult{Failed: len(events)}, errors.Wrap(err, "bulk insert savepoint")
		}
		if !stored {
			res.Failed++
			r.l.Warnf(ctx, "internal.logevent.repository.postgres.BulkInsert: row %d (%s) skipped", i, e.ID)
			continue
		}
		res.Stored++
	}

	if res.Stored == 0 {
		_ = tx.Rollback()
		return res, repository.ErrAllRowsFailed
	}

	if err := tx.Commit(); err != nil {
		r.l.Errorf(ctx, "internal.logevent.repository.postgres.BulkInsert.Commit: %v", err)
		return repository.BulkResult{Failed: len(events)}, errors.Wrap(err, "commit bulk insert")
	}
	return res, nil
}

// insertOne writes one row under its own savepoint, since a failed statement
// aborts the whole transaction in PostgreSQL. It reports false when the row
// was rejected and rolled back, and an error only when the savepoint
// commands themselves fail.
func (r *implRepository) insertOne(ctx context.Context, tx *sql.Tx, e model.LogEvent) (bool, error) {
	args, err := insertArgs(e)
	if err != nil {
		r.l.Warnf(ctx, "internal.logevent.repository.postgres.insertOne.insertArgs: %v", err)
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT log_event_row"); err != nil {
		return false, err
	}
	if _, err := queries.Raw(insertLogEventQuery, args...).ExecContext(ctx, tx); err != nil {
		r.l.Warnf(ctx, "internal.logevent.repository.postgres.insertOne.Exec: %v", err)
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT log_event_row"); rbErr != nil {
			return false, rbErr
		}
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT log_event_row"); err != nil {
		return false, err
	}
	return true, nil
}

func (r *implRepository) CountEvents(ctx context.Context, opts repository.CountOptions) (int, error) {
	q, args := buildCountQuery(opts)

	var out struct {
		Count int `boil:"count"`
	}
	if err := queries.Raw(q, args...).Bind(ctx, r.db, &out); err != nil {
		r.l.Errorf(ctx, "internal.logevent.repository.postgres.CountEvents.Bind: %v", err)
		return 0, errors.Wrap(err, "count events")
	}
	return out.Count, nil
}

func (r *implRepository) List(ctx context.Context, opts repository.ListOptions) ([]model.LogEvent, error) {
	q, args := buildListQuery(opts)

	var rows []logEventRow
	if err := queries.Raw(q, args...).Bind(ctx, r.db, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.l.Errorf(ctx, "internal.logevent.repository.postgres.List.Bind: %v", err)
		return nil, errors.Wrap(err, "list events")
	}

	res := make([]model.LogEvent, len(rows))
	for i, row := range rows {
		res[i] = row.toModel()
	}
	return res, nil
}
