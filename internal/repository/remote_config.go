package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/cloudsync"
)

const keyRemoteConfig = "remote_config"

// SaveRemoteConfig 保存远端同步配置，重启后沿用
func (r *Repository) SaveRemoteConfig(cfg cloudsync.Config) error {
	query := `
		INSERT INTO board_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.dbpool.ExecContext(ctx, query, keyRemoteConfig, raw)
	return err
}

// LoadRemoteConfig 读取保存过的远端同步配置，没有时返回 found=false
func (r *Repository) LoadRemoteConfig() (cloudsync.Config, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var cfg cloudsync.Config
	found, err := r.get(ctx, keyRemoteConfig, &cfg)
	if err != nil {
		return cloudsync.Config{}, false, err
	}
	return cfg, found, nil
}
