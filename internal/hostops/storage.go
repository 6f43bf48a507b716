package hostops

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// kvRow is the gorm model backing Store: one row per (namespace, key)
// pair, matching the shape of the teacher's KV bindings (kv.go) but
// persisted through an ORM instead of an in-memory map, per spec.md's
// "persistent storage op category... backing a durable key/value op used
// by the test-runner fixture store".
type kvRow struct {
	Namespace string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Value     string
	ExpiresAt *time.Time
}

// Store is a durable, gorm-backed key/value store, one SQLite file per
// Store the way the teacher's D1Bridge gives each database binding its
// own isolated file (d1.go's OpenD1Database).
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) a SQLite-backed store at dataDir/kv/name.sqlite3.
func OpenStore(dataDir, name string) (*Store, error) {
	path := filepath.Join(dataDir, "kv", name+".sqlite3")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("hostops: creating store dir for %q: %w", name, err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("hostops: opening store %q: %w", name, err)
	}
	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, fmt.Errorf("hostops: migrating store %q: %w", name, err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for key, or ok=false if absent or expired.
func (s *Store) Get(namespace, key string) (value string, ok bool, err error) {
	var row kvRow
	res := s.db.Where("namespace = ? AND key = ?", namespace, key).First(&row)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("hostops: store get %q/%q: %w", namespace, key, res.Error)
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(time.Now()) {
		_ = s.Delete(namespace, key)
		return "", false, nil
	}
	return row.Value, true, nil
}

// Put upserts a value, with an optional TTL in seconds (<=0 means no expiry).
func (s *Store) Put(namespace, key, value string, ttlSeconds int) error {
	row := kvRow{Namespace: namespace, Key: key, Value: value}
	if ttlSeconds > 0 {
		exp := time.Now().Add(time.Duration(ttlSeconds) * time.Second)
		row.ExpiresAt = &exp
	}
	res := s.db.Save(&row)
	if res.Error != nil {
		return fmt.Errorf("hostops: store put %q/%q: %w", namespace, key, res.Error)
	}
	return nil
}

// Delete removes a key, succeeding (no error) if it was already absent.
func (s *Store) Delete(namespace, key string) error {
	res := s.db.Where("namespace = ? AND key = ?", namespace, key).Delete(&kvRow{})
	if res.Error != nil {
		return fmt.Errorf("hostops: store delete %q/%q: %w", namespace, key, res.Error)
	}
	return nil
}

// List returns up to limit keys under namespace with the given prefix,
// ordered by key, matching the pagination shape of the teacher's
// KVListResult (kv.go) minus the cursor (callers page by last-seen key).
func (s *Store) List(namespace, prefix string, limit int) ([]string, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var rows []kvRow
	res := s.db.Where("namespace = ? AND key LIKE ?", namespace, prefix+"%").
		Order("key").Limit(limit).Find(&rows)
	if res.Error != nil {
		return nil, fmt.Errorf("hostops: store list %q: %w", namespace, res.Error)
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("hostops: store close: %w", err)
	}
	return sqlDB.Close()
}
