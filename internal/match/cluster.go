package match

import (
	"sort"
	"strconv"
	"time"

	"github.com/medley-health/roster-cli/internal/roster"
)

// Cluster is a connected component over the accepted duplicate-pair graph.
type Cluster struct {
	ID             string `json:"id"`
	Representative int    `json:"representative"`
	Members        []int  `json:"members"`
}

// unionFind is an iterative disjoint-set over a dense remapping of the record
// indices that participate in at least one accepted pair. Path compression is
// done with an explicit two-pass loop so deep duplicate graphs cannot blow
// the stack.
type unionFind struct {
	parent []int
	rank   []int
	dense  map[int]int // record index → dense slot
	nodes  []int       // dense slot → record index
}

func newUnionFind() *unionFind {
	return &unionFind{dense: make(map[int]int)}
}

func (u *unionFind) slot(x int) int {
	if s, ok := u.dense[x]; ok {
		return s
	}
	s := len(u.nodes)
	u.dense[x] = s
	u.nodes = append(u.nodes, x)
	u.parent = append(u.parent, s)
	u.rank = append(u.rank, 0)
	return s
}

func (u *unionFind) find(s int) int {
	root := s
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[s] != root {
		u.parent[s], s = root, u.parent[s]
	}
	return root
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(u.slot(a)), u.find(u.slot(b))
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// BuildClusters unions the indices of every accepted pair and reads out the
// connected components. Each cluster's members are sorted, its ID derives
// from the smallest member index, and its representative is chosen by
// chooseRepresentative. The result is sorted by ID anchor so the output is
// identical regardless of the order pairs were unioned.
func BuildClusters(pairs []PairScore, feats []Features, t *roster.Table) []Cluster {
	uf := newUnionFind()
	for _, p := range pairs {
		uf.union(p.Pair.I, p.Pair.J)
	}

	components := make(map[int][]int)
	for slot, idx := range uf.nodes {
		root := uf.find(slot)
		components[root] = append(components[root], idx)
	}

	clusters := make([]Cluster, 0, len(components))
	for _, members := range components {
		sort.Ints(members)
		clusters = append(clusters, Cluster{
			ID:             "cluster_" + strconv.Itoa(members[0]),
			Members:        members,
			Representative: chooseRepresentative(members, feats, t),
		})
	}
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].Members[0] < clusters[b].Members[0]
	})
	return clusters
}

// chooseRepresentative picks the member that maximizes the lexicographic
// tuple (hasNPI, hasLicense, lastUpdated, -index): prefer a record with an
// NPI, then one with a real license, then the most recently updated, then the
// lowest original index.
func chooseRepresentative(members []int, feats []Features, t *roster.Table) int {
	best := -1
	var bestKey [4]int64
	for _, idx := range members {
		key := [4]int64{0, 0, 0, int64(-idx)}
		if feats[idx].NPI != "" {
			key[0] = 1
		}
		if feats[idx].HasLicense() {
			key[1] = 1
		}
		key[2] = parseTimestamp(t.Rows[idx].Lookup(roster.ColLastUpdated))
		if best == -1 || tupleLess(bestKey, key) {
			best = idx
			bestKey = key
		}
	}
	return best
}

func tupleLess(a, b [4]int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// parseTimestamp converts an update-timestamp field to Unix nanoseconds.
// Unparseable or missing values are treated as the oldest possible (0).
func parseTimestamp(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixNano()
		}
	}
	return 0
}
