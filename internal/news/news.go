// Package news aggregates curated RSS/Atom sources into classified
// headlines for the daily report.
package news

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"companion/internal/config"
	appLog "companion/internal/log"
)

// Item is one classified article.
type Item struct {
	Title     string
	Link      string
	Source    string
	Topic     string
	Published time.Time // zero when the feed gave no parseable date
}

// PublishedString renders the publish time for display, or "" when unknown.
func (i Item) PublishedString() string {
	if i.Published.IsZero() {
		return ""
	}
	return i.Published.Format("2006-01-02 15:04")
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

// Aggregator fetches the configured feeds and produces filtered, classified,
// deduplicated items with a per-topic cap.
type Aggregator struct {
	cfg        config.NewsConfig
	classifier *Classifier
	client     *http.Client
}

func NewAggregator(cfg config.NewsConfig) *Aggregator {
	return &Aggregator{
		cfg:        cfg,
		classifier: NewClassifier(cfg.Topics),
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Fetch collects items from every configured feed. A feed that fails to
// download or decode is logged and skipped; partial results are normal.
func (a *Aggregator) Fetch(ctx context.Context) []Item {
	now := time.Now()
	out := make([]Item, 0)
	seen := make(map[[2]string]bool)
	perTopic := make(map[string]int)

	for _, feedURL := range a.cfg.Feeds {
		entries, err := a.fetchFeed(ctx, feedURL)
		if err != nil {
			appLog.Error("news feed skipped", err, "url", feedURL)
			continue
		}

		for _, e := range entries {
			item, ok := a.normalizeEntry(e, now)
			if !ok {
				continue
			}
			if perTopic[item.Topic] >= a.cfg.Limit {
				continue
			}
			key := [2]string{item.Title, item.Link}
			if seen[key] {
				continue
			}
			seen[key] = true
			perTopic[item.Topic]++
			out = append(out, item)
		}
	}

	appLog.Info("news aggregation completed", "items", len(out), "feeds", len(a.cfg.Feeds))
	return out
}

func (a *Aggregator) fetchFeed(ctx context.Context, feedURL string) ([]feedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml,text/xml,*/*")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &url.Error{Op: "Get", URL: feedURL, Err: io.ErrUnexpectedEOF}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeFeed(body)
}

// normalizeEntry applies the required-field, domain and age filters and
// classifies the entry.
func (a *Aggregator) normalizeEntry(e feedEntry, now time.Time) (Item, bool) {
	if e.Title == "" || e.Link == "" {
		return Item{}, false
	}

	host := linkHost(e.Link)
	if len(a.cfg.DomainWhitelist) > 0 && !hostMatchesAny(host, a.cfg.DomainWhitelist) {
		return Item{}, false
	}
	if hostMatchesAny(host, a.cfg.DomainBlacklist) {
		return Item{}, false
	}

	if !e.Published.IsZero() {
		age := now.Sub(e.Published)
		if age > time.Duration(a.cfg.MaxAgeHours)*time.Hour {
			return Item{}, false
		}
	}

	source := e.Source
	if source == "" {
		source = host
	}

	return Item{
		Title:     e.Title,
		Link:      e.Link,
		Source:    source,
		Topic:     a.classifier.Classify(e.Title + "\n" + e.Summary),
		Published: e.Published,
	}, true
}

func linkHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostMatchesAny(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if d == "" {
			continue
		}
		if strings.Contains(host, strings.ToLower(d)) {
			return true
		}
	}
	return false
}
