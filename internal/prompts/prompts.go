// ABOUTME: Builds the monitoring instructions sent to the agent for each job
// ABOUTME: Output is deterministic and always ends with the strict JSON output contract

package prompts

import (
	"fmt"
	"strings"

	"github.com/2389/trendclaw/internal/signals"
	"github.com/2389/trendclaw/internal/store"
)

// outputContract is appended to every prompt; the webhook parser depends on it.
const outputContract = `If you find no notable signals, return an empty array: []

Respond ONLY with valid JSON. No markdown, no explanation.`

// BuildClientPrompt returns the instructions for scanning one client.
// Only the client's selected categories are requested; an empty selection
// requests all of them.
func BuildClientPrompt(c *store.Client) string {
	categories := signals.NormalizeCategories(c.MonitorCategories)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a business intelligence agent monitoring %q for buying signals and notable activity.\n\n", c.Name)

	fmt.Fprintf(&b, "Company: %s\n", c.Name)
	writeField(&b, "Website", c.Domain)
	writeField(&b, "Industry", c.Industry)
	writeField(&b, "Description", c.Description)

	var social []string
	for _, s := range []struct{ label, url string }{
		{"LinkedIn", c.LinkedInURL},
		{"Twitter/X", c.TwitterURL},
		{"Facebook", c.FacebookURL},
		{"Instagram", c.InstagramURL},
	} {
		if s.url != "" {
			social = append(social, s.label+": "+s.url)
		}
	}
	writeList(&b, "Social Media Pages", social)
	writeList(&b, "Additional URLs", nonEmpty(c.CustomURLs))
	if kw := nonEmpty(c.Keywords); len(kw) > 0 {
		fmt.Fprintf(&b, "\nKeywords to watch: %s\n", strings.Join(kw, ", "))
	}

	b.WriteString("\nSearch their website, LinkedIn page, social media pages, and recent news for activity. Look for:\n")
	for i, key := range categories {
		cat, _ := signals.Lookup(key)
		fmt.Fprintf(&b, "%d. %s\n", i+1, cat.PromptFragment)
	}

	writeList(&b, "Suggested search queries", clientQueries(c, categories))

	b.WriteString("\n")
	writeSchema(&b, categories, "2-3 sentence description of what happened", `source name (e.g. "LinkedIn", "Twitter")`)
	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}

// BuildNichePrompt returns the instructions for scanning one niche.
func BuildNichePrompt(n *store.Niche) string {
	keywords := nonEmpty(n.Keywords)
	sources := nonEmpty(n.Sources)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a trend monitoring agent tracking the topic %q.\n\n", n.Name)
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(keywords, ", "))
	if len(sources) > 0 {
		fmt.Fprintf(&b, "Sources to check: %s\n", strings.Join(sources, ", "))
	}

	b.WriteString("\nSearch for trending content, news, and discussions related to these keywords. Look for:\n")
	trending, _ := signals.Lookup(signals.TrendingTopic)
	fmt.Fprintf(&b, "1. %s\n", trending.PromptFragment)
	b.WriteString("2. **Industry news**: major announcements in this space\n")
	b.WriteString("3. **Content opportunities**: topics gaining traction that would be good for content creation\n")

	writeList(&b, "Suggested search queries", nicheQueries(n.Name, keywords, sources))

	b.WriteString("\n")
	writeSchema(&b, []string{signals.TrendingTopic}, "2-3 sentence description of the trend", "source name")
	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeSchema(b *strings.Builder, types []string, summaryHint, sourceHint string) {
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = fmt.Sprintf("%q", t)
	}

	b.WriteString("Output a JSON array of signals. Each signal should have:\n")
	if len(quoted) == 1 {
		fmt.Fprintf(b, "- type: %s\n", quoted[0])
	} else {
		fmt.Fprintf(b, "- type: one of %s\n", strings.Join(quoted, ", "))
	}
	b.WriteString("- title: short headline (under 100 chars)\n")
	fmt.Fprintf(b, "- summary: %s\n", summaryHint)
	b.WriteString("- sourceUrl: URL where you found this information\n")
	fmt.Fprintf(b, "- sourceName: %s\n", sourceHint)
	b.WriteString("- confidence: 0.0 to 1.0 indicating how confident you are this is real\n")
}

// queryTerms maps categories to the search phrase used in suggested queries.
var queryTerms = map[string]string{
	signals.ExecutiveChange: "appoints OR hires CEO OR CTO OR VP",
	signals.Funding:         "raises OR funding round",
	signals.Hiring:          "hiring OR jobs",
	signals.ProductLaunch:   "launches OR announces",
	signals.Expansion:       "new office OR expands",
	signals.Partnership:     "partnership OR partners with",
	signals.SocialPosts:     "posts",
	signals.NewsMentions:    "news",
	signals.Awards:          "award OR ranked",
	signals.Events:          "conference OR webinar OR speaking",
}

func clientQueries(c *store.Client, categories []string) []string {
	name := strings.TrimSpace(c.Name)
	quotedName := fmt.Sprintf("%q", name)
	var out []string
	for _, key := range categories {
		if term, ok := queryTerms[key]; ok {
			out = append(out, quotedName+" "+term)
		}
	}
	if domain := strings.TrimSpace(c.Domain); domain != "" {
		out = append(out, "site:"+domain)
		out = append(out, fmt.Sprintf("%q -site:%s", domain, domain))
	}
	if c.LinkedInURL != "" {
		out = append(out, "site:linkedin.com "+quotedName)
	}
	for _, kw := range nonEmpty(c.Keywords) {
		out = append(out, fmt.Sprintf("%s %q", quotedName, kw))
	}
	return out
}

func nicheQueries(name string, keywords, sources []string) []string {
	out := []string{fmt.Sprintf("%q trending", strings.TrimSpace(name))}
	for _, kw := range keywords {
		out = append(out, fmt.Sprintf("%q latest news", kw))
	}
	for _, src := range sources {
		for _, kw := range keywords {
			if strings.Contains(src, ".") {
				out = append(out, fmt.Sprintf("site:%s %q", src, kw))
			} else {
				out = append(out, fmt.Sprintf("%s %q", src, kw))
			}
		}
	}
	return out
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
