package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestHandler(t *testing.T) {
	tel, err := Setup()
	if err != nil {
		t.Fatal(err)
	}
	defer tel.Shutdown(context.Background())

	counter, err := otel.Meter("wikifront_test").Int64Counter("wikifront_test_events")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 3)

	w := httptest.NewRecorder()
	tel.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	for _, name := range []string{"wikifront_test_events_total", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s to be exported", name)
		}
	}
}
