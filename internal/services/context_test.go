package services_test

import (
	"context"
	"testing"

	"ffkit/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithJobID(ctx, 4)
	ctx = services.WithPath(ctx, "/media/a.mkv")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.JobIDFromContext(ctx); !ok || id != 4 {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if path, ok := services.PathFromContext(ctx); !ok || path != "/media/a.mkv" {
		t.Fatalf("unexpected path: %v %v", path, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithPath(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.PathFromContext(ctx); ok {
		t.Fatal("expected no path value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
