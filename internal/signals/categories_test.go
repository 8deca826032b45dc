// ABOUTME: Tests for the category taxonomy
// ABOUTME: Checks canonical ordering and selection normalization

package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKeys_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []string{
		"executive_change", "funding", "hiring", "product_launch", "expansion",
		"partnership", "social_posts", "news_mentions", "awards", "events",
	}, ClientKeys())
}

func TestNormalizeCategories(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil selects all", nil, ClientKeys()},
		{"empty selects all", []string{}, ClientKeys()},
		{"reordered", []string{"events", "funding"}, []string{"funding", "events"}},
		{"duplicates dropped", []string{"hiring", "hiring", "awards"}, []string{"hiring", "awards"}},
		{"unknown dropped", []string{"gossip", "partnership"}, []string{"partnership"}},
		{"only unknown selects all", []string{"gossip"}, ClientKeys()},
		{"trending topic is not a client category", []string{"trending_topic"}, ClientKeys()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategories(tt.in))
		})
	}
}

func TestLookup(t *testing.T) {
	c, ok := Lookup(Funding)
	assert.True(t, ok)
	assert.Equal(t, "Funding Events", c.Label)

	c, ok = Lookup(TrendingTopic)
	assert.True(t, ok)
	assert.NotEmpty(t, c.PromptFragment)

	_, ok = Lookup("gossip")
	assert.False(t, ok)
}

func TestClientCategories_ReturnsCopy(t *testing.T) {
	cats := ClientCategories()
	cats[0].Label = "mutated"
	assert.Equal(t, "Executive Changes", ClientCategories()[0].Label)
}
