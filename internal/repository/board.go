package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

// board_store 表的键
const (
	keySites      = "sites"
	keyPeople     = "people"
	keyVehicles   = "vehicles"
	keyLastUpdate = "last_update"

	backupPrefix = "backup_"
)

var ErrNoBackup = errors.New("没有可恢复的本地备份")

func (r *Repository) get(ctx context.Context, key string, dst any) (bool, error) {
	query := `
		SELECT value FROM board_store WHERE key = $1
	`

	var raw []byte
	if err := r.dbpool.QueryRowContext(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func upsert(ctx context.Context, tx *sql.Tx, key string, value any) error {
	query := `
		INSERT INTO board_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, key, raw)
	return err
}

// LoadAll 加载本地保存的全部看板数据。
// 从未保存过的库返回零值数据，不报错
func (r *Repository) LoadAll() (domain.BoardData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var data domain.BoardData
	if _, err := r.get(ctx, keySites, &data.Sites); err != nil {
		return domain.BoardData{}, err
	}
	if _, err := r.get(ctx, keyPeople, &data.People); err != nil {
		return domain.BoardData{}, err
	}
	if _, err := r.get(ctx, keyVehicles, &data.Vehicles); err != nil {
		return domain.BoardData{}, err
	}
	if _, err := r.get(ctx, keyLastUpdate, &data.LastUpdate); err != nil {
		return domain.BoardData{}, err
	}

	return data, nil
}

func (r *Repository) saveAllWithPrefix(prefix string, data domain.BoardData) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsert(ctx, tx, prefix+keySites, data.Sites); err != nil {
		return err
	}
	if err := upsert(ctx, tx, prefix+keyPeople, data.People); err != nil {
		return err
	}
	if err := upsert(ctx, tx, prefix+keyVehicles, data.Vehicles); err != nil {
		return err
	}
	if err := upsert(ctx, tx, prefix+keyLastUpdate, data.LastUpdate); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveAll 在单个事务里整体保存看板数据
func (r *Repository) SaveAll(data domain.BoardData) error {
	return r.saveAllWithPrefix("", data)
}

// SaveBackup 把当前数据另存为本地备份，覆盖旧备份
func (r *Repository) SaveBackup(data domain.BoardData) error {
	return r.saveAllWithPrefix(backupPrefix, data)
}

// LoadBackup 读取本地备份，不存在时返回 ErrNoBackup
func (r *Repository) LoadBackup() (domain.BoardData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var data domain.BoardData
	found, err := r.get(ctx, backupPrefix+keyPeople, &data.People)
	if err != nil {
		return domain.BoardData{}, err
	}
	if !found {
		return domain.BoardData{}, ErrNoBackup
	}
	if _, err := r.get(ctx, backupPrefix+keySites, &data.Sites); err != nil {
		return domain.BoardData{}, err
	}
	if _, err := r.get(ctx, backupPrefix+keyVehicles, &data.Vehicles); err != nil {
		return domain.BoardData{}, err
	}
	if _, err := r.get(ctx, backupPrefix+keyLastUpdate, &data.LastUpdate); err != nil {
		return domain.BoardData{}, err
	}

	return data, nil
}
