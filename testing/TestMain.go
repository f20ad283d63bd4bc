// Package testing marks the process as a test run before any application
// package initialises. Test files import it for its side effect.
package testing

import (
	"os"
	stdtesting "testing"

	"github.com/Eric920418/Manpower-sub002/internal/app"
	_ "github.com/Eric920418/Manpower-sub002/internal/testing/guard"
)

func init() {
	// The guard init has already set the environment flag; refresh so any
	// earlier read of the mode picks it up.
	app.RefreshTestMode()
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
