package app

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the app
// package. WarmUp is the one place construction and goroutines meet.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
