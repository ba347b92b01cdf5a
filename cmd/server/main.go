package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/azybler/streetrouter/internal/dispatch"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graphfile"
	"github.com/azybler/streetrouter/internal/httpserver"
	"github.com/azybler/streetrouter/internal/search"
)

func main() {
	graphPath := flag.String("graph", "graph.strt", "Path to preprocessed graph file")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (not applied: every response sends Access-Control-Allow-Origin: *)")
	flag.Parse()

	start := time.Now()

	// Load the preprocessed graph artifact: base topology, CH overlay,
	// and street names, all in one tarstore container.
	log.Printf("Loading graph from %s...", *graphPath)
	g, idx, err := graphfile.Read(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d fwd edges, %d bwd edges",
		idx.NumNodes, len(idx.FwdHead), len(idx.BwdHead))

	// Build the spatial index and the CH-backed search engine.
	log.Println("Building spatial index...")
	spatialIdx := geoindex.Build(g)
	oracle := search.NewCHOracle(idx)
	engine := search.NewEngine(oracle, g, spatialIdx)

	facade := &dispatch.Facade{Graph: g, Index: spatialIdx, Engine: engine}

	// Reclaim memory from init-time temporaries. Without this, Go's heap
	// retains peak RSS from index construction (GC doubles heap each cycle:
	// 120→240→480→960→1920 MB). This returns unused pages to the OS.
	runtime.GC()
	debug.FreeOSMemory()

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	cfg := httpserver.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	srv := httpserver.NewServer(cfg, facade)

	if err := httpserver.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
