package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation:      http.StatusBadRequest,
		Conflict:        http.StatusBadRequest,
		Unauthenticated: http.StatusUnauthorized,
		Forbidden:       http.StatusForbidden,
		NotFound:        http.StatusNotFound,
		Timeout:         http.StatusRequestTimeout,
		Unexpected:      http.StatusInternalServerError,
	}
	for kind, expected := range cases {
		if got := kind.Status(); got != expected {
			t.Fatalf("kind %s expected %d got %d", kind, expected, got)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", Missing("activity not found"))
	if KindOf(err) != NotFound {
		t.Fatalf("expected not_found, got %s", KindOf(err))
	}
	if Message(err) != "activity not found" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestKindOfDeadline(t *testing.T) {
	err := fmt.Errorf("query: %w", context.DeadlineExceeded)
	if KindOf(err) != Timeout {
		t.Fatalf("expected timeout, got %s", KindOf(err))
	}
	if Message(err) != "request timeout" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestUnexpectedMessageHidden(t *testing.T) {
	err := Wrap(Unexpected, "insert failed", errors.New("pq: connection reset"))
	if Message(err) != "internal server error" {
		t.Fatalf("expected generic message, got %q", Message(err))
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected unwrap to expose cause")
	}
	if Message(errors.New("boom")) != "internal server error" {
		t.Fatalf("expected generic message for plain error")
	}
}
