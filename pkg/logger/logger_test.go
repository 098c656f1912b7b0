package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNamedLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(LoggingConfig{Level: "debug", Format: "json"})
	base.SetOutput(&buf)

	log := base.Named("orders")
	log.WithField("order_id", "AB12CD34").Info("order placed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v (%s)", err, buf.String())
	}
	if entry["component"] != "orders" {
		t.Fatalf("component = %v, want orders", entry["component"])
	}
	if entry["order_id"] != "AB12CD34" {
		t.Fatalf("order_id = %v", entry["order_id"])
	}
	if entry["msg"] != "order placed" {
		t.Fatalf("msg = %v", entry["msg"])
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	log := New(LoggingConfig{Level: "chatty"})
	if got := log.GetLevel().String(); got != "info" {
		t.Fatalf("level = %s, want info", got)
	}
}

func TestWithContextAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{})
	log.SetOutput(&buf)

	ctx := ContextWithTraceID(context.Background(), "trace-1")
	log.WithContext(ctx).Warn("slow request")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["trace_id"] != "trace-1" {
		t.Fatalf("trace_id = %v", entry["trace_id"])
	}
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id on bare context")
	}
}
