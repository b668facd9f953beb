package observability

import (
	"testing"

	otellog "go.opentelemetry.io/otel/log"
)

func TestBuildOTelLogAttributes(t *testing.T) {
	attrs := buildOTelLogAttributes([]any{"season_id", int64(5), "category", "skater_stats", "payload"})
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "season_id" || attrs[0].Value.AsInt64() != 5 {
		t.Fatalf("unexpected season_id attribute")
	}
	if attrs[1].Key != "category" || attrs[1].Value.AsString() != "skater_stats" {
		t.Fatalf("unexpected category attribute")
	}
	if attrs[2].Key != "payload" || attrs[2].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected payload attribute")
	}
}

func TestToOTelLogValue_Map(t *testing.T) {
	v := toOTelLogValue(map[string]any{
		"shots": 11,
		"win":   true,
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	items := v.AsMap()
	if len(items) != 2 {
		t.Fatalf("expected 2 map items, got %d", len(items))
	}
}
