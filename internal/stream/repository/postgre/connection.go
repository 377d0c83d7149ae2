package postgres

import (
	"context"
	"database/sql"

	"logstream-srv/internal/model"
	"logstream-srv/internal/stream/repository"
	postgresPkg "logstream-srv/pkg/postgre"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"
)

func (r *implRepository) Detail(ctx context.Context, id string) (model.Connection, error) {
	if err := postgresPkg.IsUUID(id); err != nil {
		return model.Connection{}, repository.ErrNotFound
	}

	var row connectionRow
	err := queries.Raw("SELECT "+connectionColumns+" FROM connections WHERE id = $1 AND deleted_at IS NULL", id).
		Bind(ctx, r.db, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Connection{}, repository.ErrNotFound
		}
		r.l.Errorf(ctx, "internal.stream.repository.postgres.Detail.Bind: %v", err)
		return model.Connection{}, errors.Wrap(err, "detail connection")
	}

	conn, err := row.toModel()
	if err != nil {
		r.l.Errorf(ctx, "internal.stream.repository.postgres.Detail.toModel: %v", err)
		return model.Connection{}, err
	}
	return conn, nil
}

func (r *implRepository) List(ctx context.Context, opts repository.ListOptions) ([]model.Connection, error) {
	q, args := buildListQuery(opts)

	var rows []connectionRow
	if err := queries.Raw(q, args...).Bind(ctx, r.db, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.l.Errorf(ctx, "internal.stream.repository.postgres.List.Bind: %v", err)
		return nil, errors.Wrap(err, "list connections")
	}

	res := make([]model.Connection, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			r.l.Warnf(ctx, "internal.stream.repository.postgres.List.toModel: %v", err)
			continue
		}
		res = append(res, c)
	}
	return res, nil
}

func (r *implRepository) UpdateStatus(ctx context.Context, opts repository.UpdateStatusOptions) error {
	q, args := buildUpdateStatusQuery(opts, r.clock().UTC())

	res, err := queries.Raw(q, args...).ExecContext(ctx, r.db)
	if err != nil {
		r.l.Errorf(ctx, "internal.stream.repository.postgres.UpdateStatus.Exec: %v", err)
		return errors.Wrapf(err, "update connection %s status", opts.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *implRepository) SoftDelete(ctx context.Context, id string) error {
	now := r.clock().UTC()
	res, err := queries.Raw(
		"UPDATE connections SET deleted_at = $2, updated_at = $2, status = $3 WHERE id = $1 AND deleted_at IS NULL",
		id, now, string(model.ConnectionStatusPaused),
	).ExecContext(ctx, r.db)
	if err != nil {
		r.l.Errorf(ctx, "internal.stream.repository.postgres.SoftDelete.Exec: %v", err)
		return errors.Wrapf(err, "soft delete connection %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
