package testutil

import (
	"os"
	"testing"
)

// RequireTestEnvironment fails t unless GO_ENV is "test". Fixtures replace
// the application database, so they must never run against a real one.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("GO_ENV must be \"test\" before fixtures touch the database, got %q", env)
	}
}

// MustSetTestEnvironment forces GO_ENV=test for the rest of the process and
// checks it took effect. Suites call it from SetupTest.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("could not set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}
