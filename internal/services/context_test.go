package services_test

import (
	"context"
	"testing"

	"mulmocast/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "audio")
	ctx = services.WithBeatKey(ctx, "intro")
	ctx = services.WithLanguage(ctx, "ja")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "audio" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if key, ok := services.BeatKeyFromContext(ctx); !ok || key != "intro" {
		t.Fatalf("unexpected beat key: %v %v", key, ok)
	}
	if lang, ok := services.LanguageFromContext(ctx); !ok || lang != "ja" {
		t.Fatalf("unexpected language: %v %v", lang, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
