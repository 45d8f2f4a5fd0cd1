package testutil

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestNATSURL returns the NATS URL for integration tests.
func TestNATSURL() string {
	if url := os.Getenv("TEST_NATS_URL"); url != "" {
		return url
	}
	return "nats://localhost:4222"
}

// RequireIntegration skips the test if not running integration tests.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("skipping integration test (set INTEGRATION_TEST=1 to run)")
	}
}

// NewTransactionID returns a transaction id unique across the test run.
func NewTransactionID() string {
	return uuid.NewString()
}

// NewRequestID returns a request id unique across the test run.
func NewRequestID() string {
	return uuid.NewString()
}

// MustDecimal parses s or fails the test.
func MustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}
