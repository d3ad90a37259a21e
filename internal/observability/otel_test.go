package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v)=%v want %v", in, got, want)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("x-api-key=abc, bad ,empty=, k2 = v2")
	if len(got) != 2 || got["x-api-key"] != "abc" || got["k2"] != "v2" {
		t.Fatalf("unexpected headers: %#v", got)
	}
	if parseHeaders("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4318 ")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=b")
	cfg := OtelConfigFromEnv()
	if !cfg.Enabled || cfg.Endpoint != "collector:4318" || cfg.Headers["a"] != "b" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	if cfg.ServiceName != "studybuddy" {
		t.Fatalf("default service name: %q", cfg.ServiceName)
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	if shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: false}); shutdown != nil {
		t.Fatalf("expected nil shutdown when tracing is disabled")
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span")
	if ctx == nil || span == nil {
		t.Fatalf("expected no-op span")
	}
	EndSpan(span, errors.New("boom"))
	EndSpan(nil, nil)
}
