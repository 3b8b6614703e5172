package infra

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPServerAppliesConfigTimeouts(t *testing.T) {
	cfg := &Config{
		Port:             "9090",
		HTTPReadTimeout:  11 * time.Second,
		HTTPWriteTimeout: 22 * time.Second,
		HTTPIdleTimeout:  33 * time.Second,
	}
	srv := NewHTTPServer(cfg, http.NewServeMux())

	if srv.Addr() != ":9090" {
		t.Fatalf("Addr() = %q, want :9090", srv.Addr())
	}
	if srv.server.ReadTimeout != cfg.HTTPReadTimeout {
		t.Fatalf("ReadTimeout = %v", srv.server.ReadTimeout)
	}
	if srv.server.WriteTimeout != cfg.HTTPWriteTimeout {
		t.Fatalf("WriteTimeout = %v", srv.server.WriteTimeout)
	}
	if srv.stopTimeout != cfg.HTTPIdleTimeout {
		t.Fatalf("stopTimeout = %v, want idle timeout", srv.stopTimeout)
	}
}

func TestHTTPServerStopWithoutStart(t *testing.T) {
	srv := NewHTTPServer(&Config{Port: "0", HTTPIdleTimeout: time.Second}, http.NewServeMux())
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop on an unstarted server: %v", err)
	}

	var zero HTTPServer
	if err := zero.Start(); err != nil {
		t.Fatalf("Start on zero value: %v", err)
	}
	if err := zero.Stop(); err != nil {
		t.Fatalf("Stop on zero value: %v", err)
	}
}
