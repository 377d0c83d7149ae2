package repository

import (
	"context"

	"logstream-srv/internal/model"
)

//go:generate mockery --name Repository
type Repository interface {
	Detail(ctx context.Context, id string) (model.Connection, error)
	List(ctx context.Context, opts ListOptions) ([]model.Connection, error)
	UpdateStatus(ctx context.Context, opts UpdateStatusOptions) error
	SoftDelete(ctx context.Context, id string) error
}
