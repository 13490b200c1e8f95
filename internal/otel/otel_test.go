package otel

import (
	"context"
	"testing"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "volunteerhub", "test", "")
	if err != nil {
		t.Fatalf("init error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitWithEndpoint(t *testing.T) {
	// The exporter connects lazily, so no collector is needed.
	shutdown, err := Init(context.Background(), "volunteerhub", "test", "localhost:4318")
	if err != nil {
		t.Fatalf("init error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
