package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-health/roster-cli/internal/roster"
)

func pairScores(pairs ...Pair) []PairScore {
	out := make([]PairScore, len(pairs))
	for i, p := range pairs {
		out[i] = PairScore{Pair: p}
	}
	return out
}

func clusterTable(rows ...roster.Row) (*roster.Table, []Features) {
	t := roster.NewTable(
		roster.ColFullName, roster.ColNPI,
		roster.ColLicenseNumber, roster.ColLicenseState,
		roster.ColLastUpdated,
	)
	for _, r := range rows {
		t.Append(r)
	}
	return t, ExtractFeatures(t, 2)
}

func TestBuildClustersOrderIndependent(t *testing.T) {
	tbl, feats := clusterTable(roster.Row{}, roster.Row{}, roster.Row{})

	forward := BuildClusters(pairScores(Pair{0, 1}, Pair{1, 2}), feats, tbl)
	reversed := BuildClusters(pairScores(Pair{1, 2}, Pair{0, 1}), feats, tbl)

	require.Len(t, forward, 1)
	assert.Equal(t, "cluster_0", forward[0].ID)
	assert.Equal(t, []int{0, 1, 2}, forward[0].Members)
	assert.Equal(t, forward, reversed)
}

func TestBuildClustersMultipleComponents(t *testing.T) {
	tbl, feats := clusterTable(
		roster.Row{}, roster.Row{}, roster.Row{}, roster.Row{}, roster.Row{},
	)

	clusters := BuildClusters(pairScores(Pair{3, 4}, Pair{0, 2}), feats, tbl)

	require.Len(t, clusters, 2)
	assert.Equal(t, "cluster_0", clusters[0].ID)
	assert.Equal(t, []int{0, 2}, clusters[0].Members)
	assert.Equal(t, "cluster_3", clusters[1].ID)
	assert.Equal(t, []int{3, 4}, clusters[1].Members)
}

func TestChooseRepresentativePrefersNPI(t *testing.T) {
	tbl, feats := clusterTable(
		roster.Row{roster.ColFullName: "Sarah Johnson"},
		roster.Row{roster.ColFullName: "Sara Johnson", roster.ColNPI: "1234567893"},
	)

	clusters := BuildClusters(pairScores(Pair{0, 1}), feats, tbl)
	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].Representative)
}

func TestChooseRepresentativePrefersLicenseWhenNoNPI(t *testing.T) {
	tbl, feats := clusterTable(
		roster.Row{roster.ColFullName: "Sarah Johnson"},
		roster.Row{
			roster.ColFullName:      "Sara Johnson",
			roster.ColLicenseNumber: "A12345",
			roster.ColLicenseState:  "CA",
		},
	)

	clusters := BuildClusters(pairScores(Pair{0, 1}), feats, tbl)
	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].Representative)
}

func TestChooseRepresentativePrefersFreshestUpdate(t *testing.T) {
	tbl, feats := clusterTable(
		roster.Row{roster.ColFullName: "Sarah Johnson", roster.ColLastUpdated: "2024-01-15"},
		roster.Row{roster.ColFullName: "Sara Johnson", roster.ColLastUpdated: "2025-06-01"},
		roster.Row{roster.ColFullName: "S Johnson", roster.ColLastUpdated: "not a date"},
	)

	clusters := BuildClusters(pairScores(Pair{0, 1}, Pair{1, 2}), feats, tbl)
	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].Representative)
}

func TestChooseRepresentativeFallsBackToLowestIndex(t *testing.T) {
	tbl, feats := clusterTable(roster.Row{}, roster.Row{}, roster.Row{})

	clusters := BuildClusters(pairScores(Pair{0, 1}, Pair{0, 2}), feats, tbl)
	require.Len(t, clusters, 1)
	assert.Equal(t, 0, clusters[0].Representative)
}

func TestParseTimestampLayouts(t *testing.T) {
	assert.Positive(t, parseTimestamp("2024-01-15T10:30:00Z"))
	assert.Positive(t, parseTimestamp("2024-01-15 10:30:00"))
	assert.Positive(t, parseTimestamp("2024-01-15"))
	assert.Positive(t, parseTimestamp("01/15/2024"))
	assert.Positive(t, parseTimestamp("2024/01/15"))
	assert.Zero(t, parseTimestamp(""))
	assert.Zero(t, parseTimestamp("yesterday"))

	assert.Less(t, parseTimestamp("2024-01-15"), parseTimestamp("2025-06-01"))
}
