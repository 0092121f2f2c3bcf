package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(context.Background(), endpoint, "erp-backend", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatalf("NewProviders(%q): nil provider in %+v", endpoint, providers)
		}
		if err := providers.Shutdown(context.Background()); err != nil {
			t.Errorf("no-op shutdown: %v", err)
		}
	}
}

func TestNewProviders_RejectsBadEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
	}{
		{"missing host", "http://"},
		{"unparseable", "http://[bad"},
		{"scheme only", "https://"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProviders(context.Background(), tc.endpoint, "erp-backend", false); err == nil {
				t.Errorf("NewProviders(%q) succeeded, want error", tc.endpoint)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		name         string
		endpoint     string
		override     bool
		wantTarget   string
		wantInsecure bool
	}{
		{"bare host:port", "collector:4317", false, "collector:4317", true},
		{"http scheme", "http://collector:4317", false, "collector:4317", true},
		{"https uses TLS", "https://collector:4317", false, "collector:4317", false},
		{"https with override", "https://collector:4317", true, "collector:4317", true},
		{"path dropped", "http://collector:4317/v1/traces", false, "collector:4317", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, insecure, err := parseTarget(tc.endpoint, tc.override)
			if err != nil {
				t.Fatalf("parseTarget: %v", err)
			}
			if target != tc.wantTarget || insecure != tc.wantInsecure {
				t.Errorf("parseTarget(%q) = (%q, %v), want (%q, %v)",
					tc.endpoint, target, insecure, tc.wantTarget, tc.wantInsecure)
			}
		})
	}
}

func TestSetGlobal(t *testing.T) {
	oldTP, oldMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTP)
		otel.SetMeterProvider(oldMP)
	}()

	providers, err := NewProviders(context.Background(), "", "erp-backend", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	providers.SetGlobal()
	if otel.GetTracerProvider() != providers.TracerProvider {
		t.Error("global tracer provider not installed")
	}
	if otel.GetMeterProvider() != providers.MeterProvider {
		t.Error("global meter provider not installed")
	}
}
