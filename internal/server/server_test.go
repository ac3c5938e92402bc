package server

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iwvelando/batch-cost/internal/cache"
	"go.uber.org/zap"
)

const uploadYAML = `
common:
  markup: 0.1
batches:
  - name: Plain
    active: true
    items:
      - name: flour
        quantity: 5
        unitPrice: 2
    theoreticalOutput: 10
    markup: 0.5
  - name: Volatile
    active: true
    items:
      - name: base
        quantity: 1
        unitPrice: 100
    theoreticalOutput: 10
    priceVolatility: 0.3
    optimizer:
      goal: safe_price
  - name: Broken
    active: true
    items:
      - name: flour
        quantity: 1
        unitPrice: 1
  - name: Retired
    active: false
    items:
      - name: flour
        quantity: 1
        unitPrice: 1
    theoreticalOutput: 5
`

const calculateJSON = `{
  "name": "Plain",
  "items": [{"name": "flour", "quantity": 5, "unitPrice": 2}],
  "batchMultiplier": 1,
  "batchesPerMediumChange": 1,
  "theoreticalOutput": 10,
  "markup": 0.5
}`

func newTestHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), cfg, "test")
}

func perform(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func performUpload(t *testing.T, h http.Handler, target, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response: %v\n%s", err, rr.Body.String())
	}
}

func TestHandleCalculateSuccess(t *testing.T) {
	rr := perform(t, newTestHandler(t, nil), http.MethodPost, "/api/calculate", calculateJSON)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculationResponse
	decodeBody(t, rr, &resp)

	if resp.Result.UnitCost != 1 {
		t.Fatalf("expected unit cost 1, got %v", resp.Result.UnitCost)
	}
	if math.Abs(resp.Result.SuggestedPrice-1.5) > 1e-9 {
		t.Fatalf("expected suggested price 1.5, got %v", resp.Result.SuggestedPrice)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Fatalf("expected uuid response id, got %q", resp.ID)
	}
	if header := rr.Header().Get(RequestIDHeader); header != resp.ID {
		t.Fatalf("expected header id %q to match body id %q", header, resp.ID)
	}
	if !strings.Contains(rr.Body.String(), `"breakdown"`) {
		t.Fatal("expected breakdown in response")
	}
}

func TestHandleCalculateKeepsClientRequestID(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(calculateJSON))
	req.Header.Set(RequestIDHeader, id)
	rr := httptest.NewRecorder()
	newTestHandler(t, nil).ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != id {
		t.Fatalf("expected request id %q to be echoed, got %q", id, got)
	}
}

func TestHandleCalculateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
		wantField  string
	}{
		{
			name:       "malformed json",
			body:       `{"items": [`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no items",
			body:       `{"items": [], "batchMultiplier": 1, "batchesPerMediumChange": 1, "theoreticalOutput": 10}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "MissingOrInvalidItems",
			wantField:  "items",
		},
		{
			name: "everything wasted",
			body: `{"items": [{"quantity": 1, "unitPrice": 1}], "batchMultiplier": 1,
				"batchesPerMediumChange": 1, "theoreticalOutput": 1, "wasteFraction": 0.5}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "ZeroSellableUnits",
		},
	}

	h := newTestHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, h, http.MethodPost, "/api/calculate", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			var resp errorResponse
			decodeBody(t, rr, &resp)
			if resp.Error.Message == "" {
				t.Fatal("expected error message")
			}
			if resp.Error.Kind != tt.wantKind {
				t.Fatalf("expected kind %q, got %q", tt.wantKind, resp.Error.Kind)
			}
			if tt.wantField != "" && resp.Error.Field != tt.wantField {
				t.Fatalf("expected field %q, got %q", tt.wantField, resp.Error.Field)
			}
			if resp.ID == "" {
				t.Fatal("expected request id on error response")
			}
		})
	}
}

func TestHandleCalculateRejectsOversizedBody(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetUploadSizeBytes(32)

	rr := perform(t, newTestHandler(t, cfg), http.MethodPost, "/api/calculate", calculateJSON)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCalculationsAreCached(t *testing.T) {
	h := newTestHandler(t, nil)
	for i := 0; i < 2; i++ {
		if rr := perform(t, h, http.MethodPost, "/api/calculate", calculateJSON); rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := perform(t, h, http.MethodGet, "/api/cache", "")
	var stats cache.Stats
	decodeBody(t, rr, &stats)
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("expected one hit, one miss and one entry, got %+v", stats)
	}

	if rr := perform(t, h, http.MethodDelete, "/api/cache", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	decodeBody(t, perform(t, h, http.MethodGet, "/api/cache", ""), &stats)
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache after clear, got %+v", stats)
	}
}

func TestHandleUploadSuccess(t *testing.T) {
	rr := performUpload(t, newTestHandler(t, nil), "/api/calculate/upload?optimize=true", "batches.yaml", []byte(uploadYAML))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp uploadResponse
	decodeBody(t, rr, &resp)

	if len(resp.Batches) != 3 {
		t.Fatalf("expected three active batches, got %d", len(resp.Batches))
	}

	plain := resp.Batches[0]
	if plain.Name != "Plain" || plain.Result == nil || plain.Error != nil {
		t.Fatalf("unexpected outcome for Plain: %+v", plain)
	}
	if math.Abs(plain.Result.SuggestedPrice-1.5) > 1e-9 {
		t.Fatalf("expected batch markup to win over common markup, got price %v", plain.Result.SuggestedPrice)
	}

	volatile := resp.Batches[1]
	if volatile.Optimization == nil || !volatile.Optimization.Converged {
		t.Fatalf("expected converged optimization for Volatile: %+v", volatile.Optimization)
	}
	if math.Abs(volatile.Optimization.Markup-0.3) > 2e-4 {
		t.Fatalf("expected optimized markup near 0.30, got %v", volatile.Optimization.Markup)
	}

	broken := resp.Batches[2]
	if broken.Error == nil || broken.Error.Kind != "AmbiguousOutputSource" {
		t.Fatalf("expected AmbiguousOutputSource for Broken, got %+v", broken.Error)
	}

	if !strings.HasPrefix(resp.CSV, "metric,Plain,Volatile\n") {
		t.Fatalf("expected CSV with priced batches only, got %q", resp.CSV)
	}
	if resp.Duration == "" || resp.ID == "" {
		t.Fatal("expected id and duration in response")
	}
}

func TestHandleUploadWithoutOptimize(t *testing.T) {
	rr := performUpload(t, newTestHandler(t, nil), "/api/calculate/upload", "batches.yaml", []byte(uploadYAML))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp uploadResponse
	decodeBody(t, rr, &resp)
	if resp.Batches[1].Optimization != nil {
		t.Fatal("expected no optimization unless requested")
	}
	if resp.Batches[1].Result.SuggestedPrice >= resp.Batches[1].Result.MinimumSafePrice {
		t.Fatal("expected the configured markup to fall short of the safe price")
	}
}

func TestHandleUploadErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetUploadSizeBytes(64)
	small := newTestHandler(t, cfg)

	rr := performUpload(t, small, "/api/calculate/upload", "batches.yaml", []byte(uploadYAML))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}

	h := newTestHandler(t, nil)
	rr = performUpload(t, h, "/api/calculate/upload", "batches.json", []byte("{not json"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed file, got %d: %s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/calculate/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=none")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing file, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleOptimize(t *testing.T) {
	body := `{
  "request": {
    "name": "Volatile",
    "items": [{"name": "base", "quantity": 1, "unitPrice": 100}],
    "batchMultiplier": 1,
    "batchesPerMediumChange": 1,
    "theoreticalOutput": 10,
    "markup": 0.1,
    "priceVolatility": 0.3
  },
  "optimizer": {"goal": "safe_price"}
}`

	h := newTestHandler(t, nil)
	rr := perform(t, h, http.MethodPost, "/api/optimize", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp optimizeResponse
	decodeBody(t, rr, &resp)
	if !resp.Optimization.Converged || resp.Optimization.OriginalMarkup != 0.1 {
		t.Fatalf("unexpected optimization: %+v", resp.Optimization)
	}
	if resp.Result.SuggestedPrice < resp.Result.MinimumSafePrice-1e-9 {
		t.Fatalf("optimized price %v below safe price %v", resp.Result.SuggestedPrice, resp.Result.MinimumSafePrice)
	}

	rr = perform(t, h, http.MethodPost, "/api/optimize", `{"optimizer": {}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without request, got %d", rr.Code)
	}

	rr = perform(t, h, http.MethodPost, "/api/optimize", strings.Replace(body, `"safe_price"`, `"revenue"`, 1))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unsupported goal, got %d", rr.Code)
	}
}

func TestHandleCurrencies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Currencies = map[string]string{"xau": "0.001"}

	rr := perform(t, newTestHandler(t, cfg), http.MethodGet, "/api/currencies", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var intervals []currencyInterval
	decodeBody(t, rr, &intervals)

	found := map[string]string{}
	for i, ci := range intervals {
		found[ci.Code] = ci.Interval
		if i > 0 && intervals[i-1].Code > ci.Code {
			t.Fatalf("expected sorted currency codes, got %s before %s", intervals[i-1].Code, ci.Code)
		}
	}
	if found["USD"] != "0.01" || found["XAU"] != "0.001" {
		t.Fatalf("expected built-in and configured intervals, got %v", found)
	}
}

func TestHandleVersion(t *testing.T) {
	rr := perform(t, NewHandler(nil, nil, "  "), http.MethodGet, "/api/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload map[string]string
	decodeBody(t, rr, &payload)
	if payload["version"] != "dev" {
		t.Fatalf("expected version dev, got %q", payload["version"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rr := perform(t, newTestHandler(t, nil), http.MethodGet, "/api/calculate", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"http://localhost:5173"}
	h := newTestHandler(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/calculate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/calculate", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header for unknown origin, got %q", got)
	}
}
