package controllers

import (
	"testing"
	"time"
)

func TestFormatTimePtr(t *testing.T) {
	if got := formatTimePtr(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %v", got)
	}

	ts := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	if got := formatTimePtr(&ts); got != "2025-03-15T09:30:00Z" {
		t.Fatalf("unexpected formatted time: %v", got)
	}

	// Non-UTC inputs are normalized to UTC.
	loc := time.FixedZone("CET", 3600)
	local := time.Date(2025, 3, 15, 10, 30, 0, 0, loc)
	if got := formatTimePtr(&local); got != "2025-03-15T09:30:00Z" {
		t.Fatalf("expected UTC normalization, got %v", got)
	}
}

func TestTimePtrToMs(t *testing.T) {
	if got := timePtrToMs(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %v", got)
	}

	ts := time.UnixMilli(1735689600000).UTC()
	if got := timePtrToMs(&ts); got != int64(1735689600000) {
		t.Fatalf("unexpected millis: %v", got)
	}
}
