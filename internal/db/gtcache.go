package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/scenebench/internal/instance"
	"github.com/banshee-data/scenebench/internal/timeutil"
)

// GTCache stores extracted ground-truth instances in the gt_instances
// table. It satisfies gtcache.Cache.
type GTCache struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewGTCache returns a cache over an opened, migrated database.
func NewGTCache(db *DB) *GTCache {
	return NewGTCacheWithClock(db, timeutil.RealClock{})
}

// NewGTCacheWithClock stamps entries using clock.
func NewGTCacheWithClock(db *DB, clock timeutil.Clock) *GTCache {
	return &GTCache{db: db.DB, clock: clock}
}

func (c *GTCache) Load(ctx context.Context, key string) (instance.Scene, bool, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		`SELECT instances_json FROM gt_instances WHERE scene_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cached instances for %s: %w", key, err)
	}
	var s instance.Scene
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, false, fmt.Errorf("decode cached instances for %s: %w", key, err)
	}
	return s, true, nil
}

func (c *GTCache) Store(ctx context.Context, key string, s instance.Scene) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode instances for %s: %w", key, err)
	}
	createdAt := c.clock.Now().UnixNano()
	return retryOnBusy(func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO gt_instances (scene_key, instances_json, created_at) VALUES (?, ?, ?)
			ON CONFLICT(scene_key) DO UPDATE SET instances_json = excluded.instances_json,
				created_at = excluded.created_at`,
			key, string(data), createdAt,
		); err != nil {
			return fmt.Errorf("store instances for %s: %w", key, err)
		}
		return tx.Commit()
	})
}

// Clear removes every cached scene and returns how many were removed.
func (c *GTCache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM gt_instances`)
	if err != nil {
		return 0, fmt.Errorf("clear ground-truth cache: %w", err)
	}
	return res.RowsAffected()
}

// Count reports the number of cached scenes.
func (c *GTCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gt_instances`).Scan(&n)
	return n, err
}
