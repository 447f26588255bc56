package news

import (
	"testing"
	"time"

	"companion/internal/config"
)

func testTopics() map[string][]string {
	return map[string][]string{
		"AI":      {`\bai\b`, `anthropic|openai|deepmind`},
		"Fintech": {`\bfintech\b`, `payment(s)?`},
	}
}

func TestClassifier_FirstMatchWins(t *testing.T) {
	c := NewClassifier(testTopics())

	cases := []struct {
		text string
		want string
	}{
		{"OpenAI announces a new payments product", "AI"}, // AI sorts before Fintech
		{"Fintech startup raises series B", "Fintech"},
		{"Weather forecast for the weekend", TopicGeneral},
		{"The AI boom continues", "AI"},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.text, tc.want, got)
		}
	}
}

func TestClassifier_CaseInsensitive(t *testing.T) {
	c := NewClassifier(testTopics())
	if got := c.Classify("ANTHROPIC ships a model"); got != "AI" {
		t.Errorf("expected AI, got %s", got)
	}
}

func TestClassifier_BadPatternIgnored(t *testing.T) {
	c := NewClassifier(map[string][]string{
		"Broken": {`(unclosed`},
		"Good":   {`golang`},
	})
	if got := c.Classify("a golang article"); got != "Good" {
		t.Errorf("expected Good, got %s", got)
	}
	if got := c.Classify("anything else"); got != TopicGeneral {
		t.Errorf("expected General, got %s", got)
	}
}

func newTestAggregator() *Aggregator {
	return NewAggregator(config.NewsConfig{
		Limit:           6,
		MaxAgeHours:     36,
		Topics:          testTopics(),
		DomainWhitelist: []string{"example.com"},
		DomainBlacklist: []string{"spam.example.com"},
	})
}

func TestNormalizeEntry_Filters(t *testing.T) {
	a := newTestAggregator()
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		e    feedEntry
		keep bool
	}{
		{"kept", feedEntry{Title: "t", Link: "https://news.example.com/a"}, true},
		{"no title", feedEntry{Link: "https://news.example.com/a"}, false},
		{"no link", feedEntry{Title: "t"}, false},
		{"off whitelist", feedEntry{Title: "t", Link: "https://other.org/a"}, false},
		{"blacklisted", feedEntry{Title: "t", Link: "https://spam.example.com/a"}, false},
		{"too old", feedEntry{Title: "t", Link: "https://news.example.com/a",
			Published: now.Add(-40 * time.Hour)}, false},
		{"fresh", feedEntry{Title: "t", Link: "https://news.example.com/a",
			Published: now.Add(-2 * time.Hour)}, true},
		{"undated kept", feedEntry{Title: "t", Link: "https://news.example.com/a"}, true},
	}
	for _, tc := range cases {
		_, ok := a.normalizeEntry(tc.e, now)
		if ok != tc.keep {
			t.Errorf("%s: keep=%v, expected %v", tc.name, ok, tc.keep)
		}
	}
}

func TestNormalizeEntry_SourceFallsBackToHost(t *testing.T) {
	a := newTestAggregator()
	item, ok := a.normalizeEntry(feedEntry{
		Title: "An AI headline",
		Link:  "https://news.example.com/story",
	}, time.Now())
	if !ok {
		t.Fatalf("entry unexpectedly dropped")
	}
	if item.Source != "news.example.com" {
		t.Errorf("expected host fallback source, got %q", item.Source)
	}
	if item.Topic != "AI" {
		t.Errorf("expected AI topic, got %q", item.Topic)
	}
}

func TestDecodeFeed_RSS(t *testing.T) {
	payload := []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Example Feed</title>
  <item>
    <title>First story</title>
    <link>https://example.com/1</link>
    <description>about ai</description>
    <pubDate>Thu, 12 Mar 2026 09:00:00 +0000</pubDate>
  </item>
</channel></rss>`)

	entries, err := decodeFeed(payload)
	if err != nil {
		t.Fatalf("decodeFeed failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Title != "First story" || e.Link != "https://example.com/1" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Source != "Example Feed" {
		t.Errorf("expected channel title fallback, got %q", e.Source)
	}
	if e.Published.IsZero() || e.Published.Hour() != 9 {
		t.Errorf("pubDate not parsed: %v", e.Published)
	}
}

func TestDecodeFeed_Atom(t *testing.T) {
	payload := []byte(`<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Source</title>
  <entry>
    <title>Entry one</title>
    <link rel="alternate" href="https://example.com/e1"/>
    <updated>2026-03-12T09:00:00Z</updated>
  </entry>
</feed>`)

	entries, err := decodeFeed(payload)
	if err != nil {
		t.Fatalf("decodeFeed failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Link != "https://example.com/e1" {
		t.Errorf("unexpected link: %q", entries[0].Link)
	}
	if entries[0].Source != "Atom Source" {
		t.Errorf("expected feed title fallback, got %q", entries[0].Source)
	}
}

func TestDecodeFeed_Garbage(t *testing.T) {
	if _, err := decodeFeed([]byte("not xml at all")); err == nil {
		t.Fatalf("expected decode error")
	}
}
