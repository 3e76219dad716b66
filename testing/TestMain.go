package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FLETERO_TEST_MODE", "1")
		// The CAE client falls back to its local stub with no URL set.
		_ = os.Unsetenv("TAX_AUTHORITY_URL")
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
