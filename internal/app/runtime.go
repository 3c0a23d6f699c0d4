package app

import (
	"os"
	"sync"
)

// TestModeEnv makes the binaries return before touching Redis or the network.
const TestModeEnv = "RINGPOS_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether binaries should skip runtime side effects.
func InTestMode() bool {
	return testMode()
}
