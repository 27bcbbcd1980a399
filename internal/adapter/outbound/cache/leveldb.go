package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const levelKeyPrefix = "report_"

// LevelDBCache persists reports in a local LevelDB so the cache survives
// restarts of a single instance.
type LevelDBCache struct {
	db *leveldb.DB
}

var _ outbound.ReportCache = (*LevelDBCache)(nil)

// OpenLevelDB opens (or creates) the database at path.
func OpenLevelDB(path string) (*LevelDBCache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb at %s: %w", path, err)
	}
	return &LevelDBCache{db: db}, nil
}

// OpenMemLevelDB opens a LevelDB backed by memory only.
func OpenMemLevelDB() (*LevelDBCache, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory leveldb: %w", err)
	}
	return &LevelDBCache{db: db}, nil
}

func (c *LevelDBCache) Get(_ context.Context, fingerprint string) (*model.Report, bool, error) {
	v, err := c.db.Get([]byte(levelKeyPrefix+fingerprint), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldb get: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(v, &report); err != nil {
		return nil, false, fmt.Errorf("decoding cached report: %w", err)
	}
	return &report, true, nil
}

func (c *LevelDBCache) Put(_ context.Context, fingerprint string, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := c.db.Put([]byte(levelKeyPrefix+fingerprint), data, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

// Len counts cached reports.
func (c *LevelDBCache) Len() (int, error) {
	iter := c.db.NewIterator(nil, nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Ping verifies the database is still open.
func (c *LevelDBCache) Ping(_ context.Context) error {
	_, err := c.db.GetProperty("leveldb.stats")
	return err
}

func (c *LevelDBCache) Close() error {
	return c.db.Close()
}
