package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/treasury"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() { gin.SetMode(gin.TestMode) }

type fixedReport struct{ r *treasury.Report }

func (f fixedReport) Last() *treasury.Report { return f.r }

func testReport() *treasury.Report {
	acc := treasury.Account{
		Address: "Sol11111",
		Type:    "SOL",
		Symbol:  "SOL",
		Name:    "Hot wallet",
		Current: treasury.Balance{Str: "3.5", Num: treasury.Q(3.5)},
		Change:  treasury.Change{Str: "0.5", Num: treasury.Q(0.5), Direction: treasury.Positive},
	}
	price := treasury.PriceOracleFunc(func(context.Context) (treasury.Money, error) {
		return treasury.M(20, "USD"), nil
	})
	return treasury.BuildReport(context.Background(), []treasury.Account{acc}, price, time.Unix(1700000000, 0), treasury.ReportOptions{})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Report(t *testing.T) {
	s := New(fixedReport{testReport()}, nil, prometheus.NewRegistry(), nil)
	rec := get(t, s, "/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /report = %d, want 200", rec.Code)
	}
	var got struct {
		Title   string `json:"title"`
		Entries []struct {
			Name      string `json:"name"`
			Change    string `json:"change"`
			Direction string `json:"direction"`
			Link      string `json:"link"`
		} `json:"entries"`
		Summary struct {
			Display map[string]string `json:"display"`
			Updated int64             `json:"updated"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %s: %v", rec.Body, err)
	}
	if got.Title != "Funds" || len(got.Entries) != 1 {
		t.Fatalf("GET /report = %s", rec.Body)
	}
	if e := got.Entries[0]; e.Name != "Hot wallet" || e.Direction != "+" || e.Change != "0.5" || e.Link != "https://solscan.io/account/Sol11111" {
		t.Errorf("entry = %+v", e)
	}
	if v := got.Summary.Display["Total USD Value:"]; v != "$70.00" {
		t.Errorf("valuation = %q, want $70.00", v)
	}
	if got.Summary.Updated != 1700000000 {
		t.Errorf("updated = %d, want 1700000000", got.Summary.Updated)
	}
}

func TestServer_NoReport(t *testing.T) {
	s := New(fixedReport{}, nil, prometheus.NewRegistry(), nil)
	if rec := get(t, s, "/report"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /report = %d, want 404", rec.Code)
	}
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /healthz = %d %s, want 200 ok", rec.Code, rec.Body)
	}
}

func TestServer_State(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balances.json")
	doc := `{"last_updated": 5, "accounts": [{"address": "A", "type": "SOL"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(fixedReport{}, treasury.NewFileStore(path), prometheus.NewRegistry(), nil)
	rec := get(t, s, "/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /state = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"last_updated": 5`) {
		t.Errorf("GET /state = %s, want the state document", rec.Body)
	}

	missing := New(fixedReport{}, treasury.NewFileStore(path+".nope"), prometheus.NewRegistry(), nil)
	if rec := get(t, missing, "/state"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /state without a file = %d, want 503", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	treasury.NewMetrics(reg)
	s := New(fixedReport{}, nil, reg, nil)
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	// vectors without observations are not exported, the gauge is.
	if !strings.Contains(rec.Body.String(), "treasury_native_price") {
		t.Errorf("GET /metrics lacks treasury_native_price:\n%s", rec.Body)
	}
}
