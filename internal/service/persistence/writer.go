package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-engine/internal/domain"
	"storefront-engine/internal/repository/kv"

	"go.uber.org/zap"
)

// Durable collection keys.
const (
	KeyAddresses      = "addresses"
	KeyPaymentMethods = "paymentMethods"
)

const defaultWriteTimeout = 5 * time.Second

// Writer mirrors collections to a kv.Store in the background.
//
// Save serializes the value immediately and returns; a single goroutine performs the
// writes. Only the newest snapshot of each key is kept pending, so the store is at most
// one step behind memory and is always overwritten with a complete collection. Failed
// writes are logged and dropped.
type Writer struct {
	store        kv.Store
	logger       *zap.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	waiters []chan struct{}
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewWriter(store kv.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		store:        store,
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
		pending:      make(map[string][]byte),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go w.run()
	return w
}

// Save queues a full overwrite of key with value. It never blocks on storage.
func (w *Writer) Save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		w.logger.Error("encode collection", zap.String("key", key), zap.Error(err))
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("writer closed, dropping save", zap.String("key", key))
		return
	}
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = data
	w.mu.Unlock()

	w.signal()
}

// Load decodes the stored collection for key into dst. It reports false when nothing
// has been stored yet.
func (w *Writer) Load(ctx context.Context, key string, dst any) (bool, error) {
	data, err := w.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, key, err)
	}
	return true, nil
}

// Flush waits until every save queued before the call has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	ch := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	w.signal()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the background goroutine.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			waiters := w.waiters
			w.waiters = nil
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		batch, keys := w.pending, w.order
		w.pending = make(map[string][]byte)
		w.order = nil
		w.mu.Unlock()

		for _, key := range keys {
			w.write(key, batch[key])
		}
	}
}

func (w *Writer) write(key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()
	if err := w.store.Put(ctx, key, data); err != nil {
		w.logger.Warn("persist collection",
			zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrPersistence, err)))
		return
	}
	w.logger.Debug("collection persisted", zap.String("key", key), zap.Int("bytes", len(data)))
}
