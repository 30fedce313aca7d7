package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// EnsureSchema 建立存储用的 KV 表，重复执行无副作用
func (r *Repository) EnsureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS board_store (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query)
	return err
}
