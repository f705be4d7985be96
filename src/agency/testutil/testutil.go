// Package testutil provides in-memory stores and fakes for package tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stake-plus/cat-agency/src/agency/data"
	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

// NewDB returns a migrated in-memory SQLite store private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := data.OpenSQLite(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := data.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Breeds is a static breed verifier. Setting Down makes every lookup fail
// with errs.ErrServiceUnavailable.
type Breeds struct {
	Known []string
	Down  bool
}

func (b Breeds) VerifyBreed(_ context.Context, name string) (bool, error) {
	if b.Down {
		return false, errs.ErrServiceUnavailable
	}
	for _, k := range b.Known {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

// Events records published mission events.
type Events struct {
	mu     sync.Mutex
	events []types.MissionEvent
}

func (e *Events) Publish(_ context.Context, ev types.MissionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *Events) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func (e *Events) All() []types.MissionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.MissionEvent(nil), e.events...)
}
