package graph

import "sort"

// Edge is one directed input edge, keyed by stable external node ids
// (e.g. OSM node ids) rather than the internal compact node indices that
// Build assigns.
type Edge struct {
	FromID    int64
	ToID      int64
	Weight    uint32 // distance in millimeters
	Name      string // street name, "" if unnamed
	ShapeLats []float64
	ShapeLons []float64
}

// BuildInput is the source-agnostic input to Build: a flat edge list plus
// coordinates for every node referenced by it. It decouples graph
// construction from any particular upstream extractor (OSM PBF, GeoJSON,
// a custom edge-list format, ...); the extractor's job is only to produce
// this shape.
type BuildInput struct {
	Edges          []Edge
	NodeLat        map[int64]float64
	NodeLon        map[int64]float64
}

// Build creates a compact CSR Graph from a flat edge list, remapping the
// caller's external node ids to dense internal node indices.
func Build(in BuildInput) *Graph {
	edges := in.Edges
	if len(edges) == 0 {
		return &Graph{}
	}

	// Step 1: collect unique node ids and build a compact mapping.
	nodeSet := make(map[int64]uint32)
	var nodeIDs []int64

	addNode := func(id int64) uint32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := uint32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	for i := range edges {
		addNode(edges[i].FromID)
		addNode(edges[i].ToID)
	}

	numNodes := uint32(len(nodeIDs))

	// Step 2: build a compact edge list with remapped indices.
	type compactEdge struct {
		from, to  uint32
		weight    uint32
		nameID    uint32
		shapeLats []float64
		shapeLons []float64
	}

	// Dedup street names into a compact, id-ordered table as edges are
	// seen: the same mapping internal/nametable.Build later consumes.
	nameIDs := make(map[string]uint32)
	var edgeNames []string
	nameIDFor := func(name string) uint32 {
		if id, ok := nameIDs[name]; ok {
			return id
		}
		id := uint32(len(edgeNames))
		nameIDs[name] = id
		edgeNames = append(edgeNames, name)
		return id
	}

	compact := make([]compactEdge, len(edges))
	for i, e := range edges {
		compact[i] = compactEdge{
			from:      nodeSet[e.FromID],
			to:        nodeSet[e.ToID],
			weight:    e.Weight,
			nameID:    nameIDFor(e.Name),
			shapeLats: e.ShapeLats,
			shapeLons: e.ShapeLons,
		}
	}

	// Step 3: sort by source node (stable order within a node is not
	// required by the invariant, but sort.Slice is fine since ties break
	// deterministically on `to`).
	sort.Slice(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		return compact[i].to < compact[j].to
	})

	// Step 4: build CSR arrays.
	numEdges := uint32(len(compact))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]uint32, numEdges)
	nameID := make([]uint32, numEdges)

	geoFirstOut := make([]uint32, numEdges+1)
	var geoShapeLat, geoShapeLon []float64

	for i, e := range compact {
		head[i] = e.to
		weight[i] = e.weight
		nameID[i] = e.nameID
		geoFirstOut[i] = uint32(len(geoShapeLat))
		geoShapeLat = append(geoShapeLat, e.shapeLats...)
		geoShapeLon = append(geoShapeLon, e.shapeLons...)
	}
	geoFirstOut[numEdges] = uint32(len(geoShapeLat))

	for _, e := range compact {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	// Step 5: node coordinates.
	nodeLat := make([]float64, numNodes)
	nodeLon := make([]float64, numNodes)
	for id, idx := range nodeSet {
		nodeLat[idx] = in.NodeLat[id]
		nodeLon[idx] = in.NodeLon[id]
	}

	return &Graph{
		NumNodes:    numNodes,
		NumEdges:    numEdges,
		FirstOut:    firstOut,
		Head:        head,
		Weight:      weight,
		NodeLat:     nodeLat,
		NodeLon:     nodeLon,
		GeoFirstOut: geoFirstOut,
		GeoShapeLat: geoShapeLat,
		GeoShapeLon: geoShapeLon,
		NameID:      nameID,
		EdgeNames:   edgeNames,
	}
}
