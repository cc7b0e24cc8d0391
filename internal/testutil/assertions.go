package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertDecimal fails the test when got differs from the decimal literal want.
// Comparison is numeric, so "90" matches "90.00".
func AssertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	if !got.Equal(Dec(t, want)) {
		t.Errorf("expected %s, got %s", want, got.String())
	}
}

// AssertNotFound checks that err is one of the *_NOT_FOUND application errors.
func AssertNotFound(t *testing.T, err error) {
	t.Helper()

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected a not-found AppError, got %T: %v", err, err)
	}
	if appErr.StatusCode != 404 {
		t.Errorf("expected a 404 error, got %s (%d)", appErr.Code, appErr.StatusCode)
	}
}
