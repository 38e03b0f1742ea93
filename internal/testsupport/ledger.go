package testsupport

import (
	"testing"

	"splice/internal/config"
	"splice/internal/ledger"
)

// MustOpenLedger opens the run ledger configured in cfg and closes it at
// test cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
