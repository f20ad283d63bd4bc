package app

import (
	"os"
	"sync"
)

const testModeEnv = "MANPOWER_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     bool
)

// InTestMode reports whether runtime side effects (servers, workers) should
// be skipped. Test binaries set the flag through the testing guard package.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv(testModeEnv) == "1"
	})
	return testMode
}

// RefreshTestMode re-reads the environment after a test mutates it.
func RefreshTestMode() {
	testMode = os.Getenv(testModeEnv) == "1"
}
