package httpserver

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azybler/streetrouter/internal/ch"
	"github.com/azybler/streetrouter/internal/dispatch"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/search"
)

func buildTestFacade(t *testing.T) *dispatch.Facade {
	t.Helper()
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 1, ToID: 2, Weight: 100, Name: "First Ave"}, {FromID: 2, ToID: 1, Weight: 100, Name: "First Ave"},
			{FromID: 2, ToID: 3, Weight: 150, Name: "Second Ave"}, {FromID: 3, ToID: 2, Weight: 150, Name: "Second Ave"},
		},
		NodeLat: map[int64]float64{1: 1.300, 2: 1.301, 3: 1.302},
		NodeLon: map[int64]float64{1: 103.800, 2: 103.801, 3: 103.802},
	}
	g := graph.Build(in)
	idx := ch.Contract(g)
	oracle := search.NewCHOracle(idx)
	spatial := geoindex.Build(g)
	engine := search.NewEngine(oracle, g, spatial)
	return &dispatch.Facade{Graph: g, Index: spatial, Engine: engine}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	facade := buildTestFacade(t)
	cfg := DefaultConfig(":0")
	srv := NewServer(cfg, facade)
	return httptest.NewServer(srv.Handler)
}

func TestAlwaysPresentHeaders(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/route/v1/car/103.800,1.300;103.802,1.302")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	for _, h := range []struct{ key, want string }{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Cache-Control", "no-store"},
		{"Access-Control-Allow-Origin", "*"},
	} {
		if got := resp.Header.Get(h.key); got != h.want {
			t.Errorf("header %s = %q, want %q", h.key, got, h.want)
		}
	}
	if resp.Header.Get("Keep-Alive") == "" {
		t.Error("Keep-Alive header missing")
	}
}

func TestGzipNegotiation(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/route/v1/car/103.800,1.300;103.802,1.302", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", resp.Header.Get("Content-Encoding"))
	}
	if resp.Header.Get("Vary") != "Accept-Encoding" {
		t.Errorf("Vary = %q, want Accept-Encoding", resp.Header.Get("Vary"))
	}

	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gr.Close()
	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("decode gzip body: %v", err)
	}
	if !strings.Contains(string(body), `"code"`) {
		t.Errorf("decoded body missing JSON: %s", body)
	}
}

func TestNoCompressionWithoutAcceptEncoding(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/route/v1/car/103.800,1.300;103.802,1.302", nil)
	req.Header.Set("Accept-Encoding", "")

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ce := resp.Header.Get("Content-Encoding"); ce != "" {
		t.Errorf("Content-Encoding = %q, want empty", ce)
	}
}

func TestKeepAliveMaxCountsDown(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	client := ts.Client()
	var last string
	for i := 0; i < 3; i++ {
		resp, err := client.Get(ts.URL + "/nearest/v1/car/103.800,1.300")
		if err != nil {
			t.Fatal(err)
		}
		last = resp.Header.Get("Keep-Alive")
		resp.Body.Close()
	}
	if !strings.Contains(last, "max=") {
		t.Errorf("Keep-Alive = %q, missing max=", last)
	}
}

func TestConcurrencyLimiterRejectsOverflow(t *testing.T) {
	facade := buildTestFacade(t)
	cfg := DefaultConfig(":0")
	cfg.MaxConcurrent = 0 // force immediate rejection
	srv := NewServer(cfg, facade)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nearest/v1/car/103.800,1.300")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 503 {
		t.Errorf("Status = %d, want 503", resp.StatusCode)
	}
}
