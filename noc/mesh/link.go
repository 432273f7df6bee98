package mesh

// LinkKey identifies an undirected link by the indices of its two routers.
// A is always the smaller index.
type LinkKey struct {
	A, B int
}

// MakeLinkKey creates the canonical key of the link between router indices i
// and j.
func MakeLinkKey(i, j int) LinkKey {
	if i > j {
		i, j = j, i
	}

	return LinkKey{A: i, B: j}
}

// Link is the record of an edge between two grid-adjacent routers.
type Link struct {
	Key     LinkKey
	Ends    [2]Coordinate
	Latency int
	Health  Health

	// Bandwidth is the number of flits the link carries per cycle. Zero
	// means unlimited.
	Bandwidth int
}

// IsHealthy tells if the link is healthy.
func (l *Link) IsHealthy() bool {
	return l.Health == Healthy
}
