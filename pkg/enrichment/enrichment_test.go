package enrichment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableIsComplete(t *testing.T) {
	kinds := All()
	assert.Len(t, kinds, 12)

	paths := make(map[string]bool)
	for _, k := range kinds {
		e, ok := Lookup(k)
		require.True(t, ok, k)
		assert.True(t, strings.HasPrefix(e.Path, "businesses/"), k)
		assert.True(t, strings.HasSuffix(e.Path, "/bulk_enrich"), k)
		assert.NotEmpty(t, e.Description, k)
		assert.False(t, paths[e.Path], "duplicate path %s", e.Path)
		paths[e.Path] = true
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"technographics", "firmographics", "technographics"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{Technographics, Firmographics}, kinds)
}

func TestParseKinds_Errors(t *testing.T) {
	_, err := ParseKinds(nil)
	require.Error(t, err)

	_, err = ParseKinds([]string{"firmographics", "gossip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gossip")

	_, err = ParseKinds([]string{
		"firmographics", "technographics", "company_ratings",
		"financial_metrics", "challenges", "workforce_trends",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 5")
}

func TestParseKinds_DuplicatesDoNotCountTowardLimit(t *testing.T) {
	kinds, err := ParseKinds([]string{
		"firmographics", "firmographics", "technographics", "company_ratings",
		"financial_metrics", "challenges",
	})
	require.NoError(t, err)
	assert.Len(t, kinds, MaxKindsPerCall)
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, Firmographics.Valid())
	assert.False(t, Kind("nope").Valid())
	assert.Equal(t, "businesses/firmographics/bulk_enrich", Firmographics.Path())
	assert.Empty(t, Kind("nope").Path())
	assert.Equal(t, "No technographics results found", Technographics.NoResultsInfo())
}

func TestDescribe(t *testing.T) {
	doc := Describe()
	for _, k := range All() {
		assert.Contains(t, doc, "- "+string(k)+": ")
	}
	assert.Equal(t, len(All()), strings.Count(doc, "\n"))
}
