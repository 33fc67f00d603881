// Package guard forces test mode for packages that import it, keeping
// test runs free of rate limiting and other runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LAMINEXBI_TEST_MODE") == "" {
			_ = os.Setenv("LAMINEXBI_TEST_MODE", "1")
		}
	})
}
