package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/xxxsen/common/logutil"
)

// BadgerTier is the shared L2: an on-disk TTL cache that survives process
// restarts. Expiry is handled by badger's per-entry TTL.
type BadgerTier struct {
	db  *badger.DB
	ttl time.Duration
}

type badgerLoggerAdapter struct{}

func (badgerLoggerAdapter) Errorf(msg string, items ...interface{}) {
	logutil.GetLogger(context.Background()).Sugar().Errorf(msg, items...)
}

func (badgerLoggerAdapter) Warningf(msg string, items ...interface{}) {
	logutil.GetLogger(context.Background()).Sugar().Warnf(msg, items...)
}

func (badgerLoggerAdapter) Infof(msg string, items ...interface{}) {
	logutil.GetLogger(context.Background()).Sugar().Debugf(msg, items...)
}

func (badgerLoggerAdapter) Debugf(msg string, items ...interface{}) {
	logutil.GetLogger(context.Background()).Sugar().Debugf(msg, items...)
}

func NewBadgerTier(path string, inMemory bool, ttl time.Duration) (*BadgerTier, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, fmt.Errorf("badger tier path is required")
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = badgerLoggerAdapter{}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerTier{db: db, ttl: ttl}, nil
}

func (t *BadgerTier) Name() string {
	return "l2-badger"
}

func (t *BadgerTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *BadgerTier) Set(ctx context.Context, e Entry) error {
	ttl := e.TTL
	if ttl <= 0 {
		ttl = t.ttl
	}
	return t.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(e.Key), e.Value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (t *BadgerTier) Health(ctx context.Context) bool {
	return !t.db.IsClosed()
}

func (t *BadgerTier) Close() error {
	return t.db.Close()
}
