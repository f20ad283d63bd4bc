package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MANPOWER_TEST_MODE") == "" {
			_ = os.Setenv("MANPOWER_TEST_MODE", "1")
		}
	})
}
