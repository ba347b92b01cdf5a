package search

import (
	"math"

	"github.com/azybler/streetrouter/internal/geoindex"
)

// PhantomSeeds computes the two Endpoint seeds for a snapped query point:
// the distance from the phantom to each of its edge's real endpoints,
// weighted by the snap ratio. weight is the edge's full cost.
//
// This symmetric U/V seeding only produces the correct meeting weight
// when the source and target phantoms sit on different edges. Two
// phantoms on the same edge must be handled separately (see
// Engine.routeOnSharedEdge): a bidirectional search seeded this way would
// meet at whichever endpoint is cheapest from both sides rather than
// measuring directly between the two phantoms.
func PhantomSeeds(snap geoindex.SnapResult, weight uint32) (toV, toU Endpoint) {
	dv := uint32(math.Round(float64(weight) * (1 - snap.Ratio)))
	du := uint32(math.Round(float64(weight) * snap.Ratio))
	return Endpoint{Node: snap.NodeV, Dist: dv}, Endpoint{Node: snap.NodeU, Dist: du}
}
