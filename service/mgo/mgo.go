// Package mgo keeps the process-wide mongo handle alive: async startup
// with backoff, periodic health checks, reconnect on sustained failure.
package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mongoutil "SLProject/data/database/mgo/mongoutil"
)

type Manager struct {
	mu        sync.RWMutex
	db        *mongo.Database
	readyCh   chan struct{}
	readyOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = Manager{readyCh: make(chan struct{})}

// StartAsync runs until ctx is done; it closes the ready channel on the
// first successful connect and reconnects after sustained ping failures.
func StartAsync(ctx context.Context, cfg *mongoutil.Config) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second
			failThresh  = 3
		)

		for {
			attempt := 0
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				db, err := mongoutil.NewMongoDB(ctx, cfg)
				if err == nil {
					globalMgr.mu.Lock()
					globalMgr.db = db
					globalMgr.mu.Unlock()
					globalMgr.readyOnce.Do(func() { close(globalMgr.readyCh) })
					break
				}
				globalMgr.lastErr.Store(err)

				backoff := baseBackoff << attempt
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
				timer := time.NewTimer(backoff - jitter/2)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				if attempt < 6 {
					attempt++
				}
			}

			fail := 0
			healthTicker := time.NewTicker(healthEvery)
			func() {
				defer healthTicker.Stop()
				for {
					select {
					case <-ctx.Done():
						globalMgr.disconnect()
						return
					case <-healthTicker.C:
						globalMgr.mu.RLock()
						db := globalMgr.db
						globalMgr.mu.RUnlock()
						if db == nil {
							return
						}
						if err := db.Client().Ping(ctx, nil); err != nil {
							fail++
							globalMgr.lastErr.Store(err)
							if fail >= failThresh {
								globalMgr.disconnect()
								return
							}
						} else {
							fail = 0
						}
					}
				}
			}()
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
}

func (m *Manager) disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		_ = m.db.Client().Disconnect(context.Background())
		m.db = nil
	}
}

// WaitReady blocks until the first successful connect or ctx expiry.
func WaitReady(ctx context.Context) error {
	globalMgr.mu.RLock()
	ready := globalMgr.db != nil
	globalMgr.mu.RUnlock()
	if ready {
		return nil
	}
	select {
	case <-globalMgr.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the most recent connection error.
func Err() error {
	if v := globalMgr.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic(fmt.Sprintf("mongo not ready: wait on WaitReady first (last err: %v)", Err()))
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		return nil, false
	}
	return globalMgr.db, true
}
