// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/arbiter/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	blobDirName    = "blob"
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BlobStoreBadger holds proposal descriptions, the reveal proof archive and
// the commit timestamp. Nothing is persisted when running in-memory.
type BlobStoreBadger struct {
	promRegistry     prometheus.Registerer
	db               *badger.DB
	logger           *slog.Logger
	gcStopCh         chan struct{}
	dataDir          string
	gcWg             sync.WaitGroup
	closeOnce        sync.Once
	blockCacheSize   uint64
	indexCacheSize   uint64
	valueLogFileSize int64
	memTableSize     int64
	valueThreshold   int64
	gcEnabled        bool
}

// New opens the badger store using the given options
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	b := &BlobStoreBadger{
		gcEnabled:        true,
		blockCacheSize:   DefaultBlockCacheSize,
		indexCacheSize:   DefaultIndexCacheSize,
		valueLogFileSize: DefaultValueLogFileSize,
		memTableSize:     DefaultMemTableSize,
		valueThreshold:   DefaultValueThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := b.badgerOptions()
	if err != nil {
		return nil, err
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	b.db = db
	if b.promRegistry != nil {
		b.registerBlobMetrics()
	}
	// GC is meaningless without a value log on disk
	if b.gcEnabled && b.dataDir != "" {
		b.gcStopCh = make(chan struct{})
		b.gcWg.Add(1)
		go b.blobGc()
	}
	return b, nil
}

func (b *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	if b.dataDir == "" {
		return badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(b.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithBlockCacheSize(int64(b.blockCacheSize)). //nolint:gosec // bounded by config
			WithIndexCacheSize(int64(b.indexCacheSize)). //nolint:gosec // bounded by config
			WithMemTableSize(b.memTableSize).
			WithValueThreshold(b.valueThreshold), nil
	}
	// Make sure that we can read data dir, and create if it doesn't exist
	if _, err := os.Stat(b.dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return badger.Options{}, fmt.Errorf("failed to read data dir: %w", err)
		}
		if err := os.MkdirAll(b.dataDir, 0o755); err != nil {
			return badger.Options{}, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return badger.DefaultOptions(filepath.Join(b.dataDir, blobDirName)).
		WithLogger(NewBadgerLogger(b.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(int64(b.blockCacheSize)). //nolint:gosec // bounded by config
		WithIndexCacheSize(int64(b.indexCacheSize)). //nolint:gosec // bounded by config
		WithValueLogFileSize(b.valueLogFileSize).
		WithMemTableSize(b.memTableSize).
		WithValueThreshold(b.valueThreshold).
		WithCompression(options.Snappy), nil
}

func (b *BlobStoreBadger) blobGc() {
	defer b.gcWg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.runValueLogGC()
		case <-b.gcStopCh:
			return
		}
	}
}

// runValueLogGC rewrites value log files until badger reports nothing left
// to reclaim
func (b *BlobStoreBadger) runValueLogGC() {
	for {
		err := b.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			b.logger.Warn(
				fmt.Sprintf("blob DB: GC failure: %s", err),
				"component", "database",
			)
		}
		return
	}
}

// Close stops background GC and closes the badger handle
func (b *BlobStoreBadger) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.gcStopCh != nil {
			close(b.gcStopCh)
			b.gcWg.Wait()
		}
		err = b.db.Close()
	})
	return err
}

// DB returns the database handle
func (b *BlobStoreBadger) DB() *badger.DB {
	return b.db
}

// NewTransaction creates a new badger transaction
func (b *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	return &badgerTxn{store: b, tx: b.db.NewTransaction(update)}
}

// Get retrieves a value within a transaction. Missing keys return
// types.ErrBlobKeyNotFound.
func (b *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	bt, err := b.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := bt.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (b *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	bt, err := b.validateTxn(txn)
	if err != nil {
		return err
	}
	return bt.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (b *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	bt, err := b.validateTxn(txn)
	if err != nil {
		return err
	}
	return bt.tx.Delete(key)
}

// NewIterator creates an iterator within a transaction. Items must be read
// before the transaction is finished.
func (b *BlobStoreBadger) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	bt, err := b.validateTxn(txn)
	if err != nil {
		return &errorIterator{err: err}
	}
	return &badgerIterator{
		iter: bt.tx.NewIterator(badger.IteratorOptions{
			Prefix:  opts.Prefix,
			Reverse: opts.Reverse,
		}),
	}
}
