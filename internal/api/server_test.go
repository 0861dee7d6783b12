package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okulab/visionsim/internal/api/models"
	"github.com/okulab/visionsim/internal/events"
	"github.com/okulab/visionsim/internal/frame"
	"github.com/okulab/visionsim/internal/simulator"
	"github.com/okulab/visionsim/internal/source"
)

type nullSink struct{}

func (nullSink) Present(*frame.Frame) error { return nil }

func newTestServer(username, password string) (*Server, *simulator.Service) {
	bus := events.New()
	sim := simulator.NewService(simulator.Options{
		Source:       source.Config{Kind: "synthetic", Width: 64, Height: 48},
		Sink:         nullSink{},
		Bus:          bus,
		TickInterval: 5 * time.Millisecond,
	})
	server := NewServer(&Options{
		AuthUsername: username,
		AuthPassword: password,
		Simulator:    sim,
		Bus:          bus,
	})
	return server, sim
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode %s response: %v", path, err)
		}
	}
	return resp
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	var health models.HealthData
	resp := getJSON(t, ts, "/api/health", &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if health.Status != "ok" {
		t.Errorf("Expected status ok, got %s", health.Status)
	}
}

func TestVersionEndpoint(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	var ver models.VersionData
	resp := getJSON(t, ts, "/api/version", &ver)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ver.Version == "" || ver.GoVersion == "" {
		t.Errorf("Incomplete version data: %+v", ver)
	}
}

func TestListEffects(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	var data models.EffectsData
	resp := getJSON(t, ts, "/api/effects", &data)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if data.Count < 6 {
		t.Errorf("Expected at least 6 effects, got %d", data.Count)
	}
	ids := make(map[string]bool)
	for _, e := range data.Effects {
		ids[e.ID] = true
	}
	for _, want := range []string{"identity", "cataract", "glaucoma", "macular", "retinopathy", "colorblind"} {
		if !ids[want] {
			t.Errorf("Effect %q missing from listing", want)
		}
	}
}

func TestSeverityRoundTrip(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPut, "/api/severity", models.SeverityRequestData{Severity: 0.65})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT severity: expected 200, got %d", resp.StatusCode)
	}
	var applied models.SeverityData
	if err := json.NewDecoder(resp.Body).Decode(&applied); err != nil {
		t.Fatal(err)
	}
	if applied.Severity != 0.65 {
		t.Errorf("Expected applied severity 0.65, got %v", applied.Severity)
	}

	var got models.SeverityData
	getJSON(t, ts, "/api/severity", &got)
	if got.Severity != 0.65 {
		t.Errorf("Expected severity 0.65 on readback, got %v", got.Severity)
	}
}

func TestSeverityValidation(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPut, "/api/severity", models.SeverityRequestData{Severity: 1.5})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for out-of-range severity, got %d", resp.StatusCode)
	}
}

func TestSimulationLifecycle(t *testing.T) {
	server, sim := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()
	defer sim.Stop()

	// Start
	resp := doJSON(t, ts, http.MethodPost, "/api/simulation/start",
		models.StartRequestData{Effect: "identity"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Start: expected 200, got %d", resp.StatusCode)
	}
	var st simulator.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !st.Running || st.Effect != "identity" {
		t.Errorf("Unexpected status after start: %+v", st)
	}

	// Second start conflicts
	resp = doJSON(t, ts, http.MethodPost, "/api/simulation/start",
		models.StartRequestData{Effect: "cataract"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Double start: expected 409, got %d", resp.StatusCode)
	}

	// Switch effect
	resp = doJSON(t, ts, http.MethodPut, "/api/simulation/effect",
		models.StartRequestData{Effect: "glaucoma"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Switch: expected 200, got %d", resp.StatusCode)
	}

	// Status reflects the switch
	var status simulator.Status
	getJSON(t, ts, "/api/status", &status)
	if status.Effect != "glaucoma" {
		t.Errorf("Expected glaucoma after switch, got %s", status.Effect)
	}

	// Stop
	resp = doJSON(t, ts, http.MethodPost, "/api/simulation/stop", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Stop: expected 200, got %d", resp.StatusCode)
	}

	// Stopping again conflicts
	resp = doJSON(t, ts, http.MethodPost, "/api/simulation/stop", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Double stop: expected 409, got %d", resp.StatusCode)
	}
}

func TestStartUnknownEffect(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodPost, "/api/simulation/start",
		models.StartRequestData{Effect: "nonexistent"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown effect, got %d", resp.StatusCode)
	}
}

func TestBasicAuthRequired(t *testing.T) {
	server, _ := newTestServer("admin", "secret")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	// Protected endpoint without credentials
	resp := getJSON(t, ts, "/api/effects", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	// Health stays open
	resp = getJSON(t, ts, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health should not require auth, got %d", resp.StatusCode)
	}

	// With valid credentials
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/effects", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", authed.StatusCode)
	}

	// With wrong credentials
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/effects", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong credentials, got %d", denied.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer("", "")
	ts := httptest.NewServer(server.GetMux())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/effects", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS allow-origin header")
	}
}
