// ABOUTME: Closed taxonomy of signal categories a client can be monitored for
// ABOUTME: Each category carries its display label and the prompt fragment sent to the agent

package signals

// Category is one kind of buying signal.
type Category struct {
	Key            string
	Label          string
	Description    string
	PromptFragment string
}

// Category keys.
const (
	ExecutiveChange = "executive_change"
	Funding         = "funding"
	Hiring          = "hiring"
	ProductLaunch   = "product_launch"
	Expansion       = "expansion"
	Partnership     = "partnership"
	SocialPosts     = "social_posts"
	NewsMentions    = "news_mentions"
	Awards          = "awards"
	Events          = "events"

	// TrendingTopic is the single category niches are monitored for.
	TrendingTopic = "trending_topic"

	// Uncategorized is stored when the agent omits a type.
	Uncategorized = "uncategorized"
)

// clientCategories is in canonical order.
var clientCategories = []Category{
	{
		Key:            ExecutiveChange,
		Label:          "Executive Changes",
		Description:    "New hires, departures, promotions (C-suite/VP)",
		PromptFragment: "**Executive changes**: new hires, departures, promotions (especially C-suite/VP level)",
	},
	{
		Key:            Funding,
		Label:          "Funding Events",
		Description:    "Fundraising announcements, investment rounds",
		PromptFragment: "**Funding events**: fundraising announcements, investment rounds",
	},
	{
		Key:            Hiring,
		Label:          "Hiring Activity",
		Description:    "Significant hiring activity, team expansions",
		PromptFragment: "**Hiring activity**: significant hiring posts, new team expansions",
	},
	{
		Key:            ProductLaunch,
		Label:          "Product Launches",
		Description:    "New products, features, services",
		PromptFragment: "**Product launches**: new products, features, or services announced",
	},
	{
		Key:            Expansion,
		Label:          "Expansion",
		Description:    "New offices, markets, geographic growth",
		PromptFragment: "**Expansion**: new offices, markets, or geographic expansion",
	},
	{
		Key:            Partnership,
		Label:          "Partnerships",
		Description:    "Strategic partnerships, integrations",
		PromptFragment: "**Partnerships**: strategic partnerships, integrations, collaborations",
	},
	{
		Key:            SocialPosts,
		Label:          "Social Media Posts",
		Description:    "Recent social media posts and content activity",
		PromptFragment: "**Social media posts**: recent posts, content activity, engagement trends",
	},
	{
		Key:            NewsMentions,
		Label:          "News & Media",
		Description:    "Press coverage, news articles, media mentions",
		PromptFragment: "**News mentions**: press coverage, news articles, media mentions",
	},
	{
		Key:            Awards,
		Label:          "Awards & Recognition",
		Description:    "Awards, rankings, certifications",
		PromptFragment: "**Awards**: awards, rankings, certifications, recognitions",
	},
	{
		Key:            Events,
		Label:          "Events",
		Description:    "Conference appearances, webinars, speaking engagements",
		PromptFragment: "**Events**: conference appearances, webinars, speaking engagements",
	},
}

var trendingTopic = Category{
	Key:            TrendingTopic,
	Label:          "Trending Topics",
	Description:    "Viral discussions, emerging trends, content opportunities",
	PromptFragment: "**Trending topics**: viral discussions, emerging trends",
}

var byKey = func() map[string]Category {
	m := make(map[string]Category, len(clientCategories)+1)
	for _, c := range clientCategories {
		m[c.Key] = c
	}
	m[trendingTopic.Key] = trendingTopic
	return m
}()

// ClientCategories returns the client taxonomy in canonical order.
func ClientCategories() []Category {
	out := make([]Category, len(clientCategories))
	copy(out, clientCategories)
	return out
}

// ClientKeys returns every client category key in canonical order.
func ClientKeys() []string {
	keys := make([]string, len(clientCategories))
	for i, c := range clientCategories {
		keys[i] = c.Key
	}
	return keys
}

// Lookup returns the category for key, including trending_topic.
func Lookup(key string) (Category, bool) {
	c, ok := byKey[key]
	return c, ok
}

// NormalizeCategories filters a client selection down to known client keys in
// canonical order without duplicates. An empty result selects every category.
func NormalizeCategories(selection []string) []string {
	want := make(map[string]bool, len(selection))
	for _, k := range selection {
		want[k] = true
	}

	var out []string
	for _, c := range clientCategories {
		if want[c.Key] {
			out = append(out, c.Key)
		}
	}
	if len(out) == 0 {
		return ClientKeys()
	}
	return out
}
