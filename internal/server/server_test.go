package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"yieldwatcher/internal/storage"
)

type fakeService struct {
	rows        []storage.YieldRow
	seedCount   int
	updateCount int
	seedCalls   int
	updateCalls int
	getCalls    int
	gotStart    string
	gotEnd      string
	err         error
}

func (f *fakeService) SeedHistoricalYields(ctx context.Context) (int, error) {
	f.seedCalls++
	return f.seedCount, f.err
}

func (f *fakeService) UpdateRecentYields(ctx context.Context) (int, error) {
	f.updateCalls++
	return f.updateCount, f.err
}

func (f *fakeService) GetYields(ctx context.Context, startDate, endDate string) ([]storage.YieldRow, error) {
	f.getCalls++
	f.gotStart = startDate
	f.gotEnd = endDate
	return f.rows, f.err
}

func newTestServer(svc *fakeService, secret string) *httptest.Server {
	s := New(Options{RefreshSecret: secret}, svc, zerolog.Nop())
	return httptest.NewServer(s.Handler())
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestGetYields(t *testing.T) {
	svc := &fakeService{rows: []storage.YieldRow{
		{Date: "2024-01-02", Treasury10Y: 4.0, MuniYield: 3.5, Spread: -0.5, SpreadBps: -50, MuniTreasuryRatio: 87.5},
	}}
	srv := newTestServer(svc, "")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/yields?start=2024-01-01&end=2024-01-31")
	if err != nil {
		t.Fatalf("GET /yields: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	data, ok := body["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("unexpected data payload: %#v", body)
	}
	row := data[0].(map[string]any)
	if row["date"] != "2024-01-02" || row["spread_bps"] != -50.0 {
		t.Fatalf("unexpected row payload: %#v", row)
	}

	if svc.gotStart != "2024-01-01" || svc.gotEnd != "2024-01-31" {
		t.Fatalf("bounds not forwarded: %q, %q", svc.gotStart, svc.gotEnd)
	}
}

func TestGetYieldsError(t *testing.T) {
	svc := &fakeService{err: errors.New("list yield rows: connection refused")}
	srv := newTestServer(svc, "")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/yields")
	if err != nil {
		t.Fatalf("GET /yields: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if msg, ok := body["error"].(string); !ok || msg == "" {
		t.Fatalf("expected error message, got %#v", body)
	}
}

func TestSeedEndpoint(t *testing.T) {
	svc := &fakeService{seedCount: 2500}
	srv := newTestServer(svc, "")
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/yields/seed", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /yields/seed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success=true: %#v", body)
	}
	if body["rowsWritten"] != 2500.0 {
		t.Fatalf("rowsWritten = %v, want 2500", body["rowsWritten"])
	}
	if svc.seedCalls != 1 {
		t.Fatalf("seed called %d times", svc.seedCalls)
	}
}

func TestSeedRequiresPost(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc, "")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/yields/seed")
	if err != nil {
		t.Fatalf("GET /yields/seed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if svc.seedCalls != 0 {
		t.Fatal("seed must not run on wrong method")
	}
}

func TestUpdateUnauthorized(t *testing.T) {
	svc := &fakeService{updateCount: 3}
	srv := newTestServer(svc, "topsecret")
	defer srv.Close()

	// No Authorization header.
	resp, err := http.Get(srv.URL + "/yields/update")
	if err != nil {
		t.Fatalf("GET /yields/update: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Unauthorized" {
		t.Fatalf("unexpected body: %#v", body)
	}
	if svc.updateCalls != 0 {
		t.Fatal("update must not run without authorization")
	}

	// Wrong secret.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/yields/update", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /yields/update: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if svc.updateCalls != 0 {
		t.Fatal("update must not run with a bad secret")
	}
}

func TestUpdateAuthorized(t *testing.T) {
	svc := &fakeService{updateCount: 3}
	srv := newTestServer(svc, "topsecret")
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/yields/update", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /yields/update: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true || body["rowsWritten"] != 3.0 {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestUpdateNoSecretConfigured(t *testing.T) {
	svc := &fakeService{updateCount: 1}
	srv := newTestServer(svc, "")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/yields/update")
	if err != nil {
		t.Fatalf("GET /yields/update: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.updateCalls != 1 {
		t.Fatal("update should proceed when no secret is configured")
	}
}
