package news

import (
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

// feedEntry is a format-neutral view of one RSS item or Atom entry.
type feedEntry struct {
	Title     string
	Link      string
	Summary   string
	Source    string
	Published time.Time // zero when absent or unparseable
}

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
			Source      string `xml:"source"`
			Creator     string `xml:"creator"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDoc struct {
	XMLName xml.Name `xml:"feed"`
	Title   string   `xml:"title"`
	Entries []struct {
		Title   string `xml:"title"`
		Links   []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Summary string `xml:"summary"`
		Updated string `xml:"updated"`
		Author  struct {
			Name string `xml:"name"`
		} `xml:"author"`
	} `xml:"entry"`
}

// decodeFeed parses an RSS 2.0 or Atom payload into neutral entries.
func decodeFeed(data []byte) ([]feedEntry, error) {
	var rss rssDoc
	if err := xml.Unmarshal(data, &rss); err == nil && len(rss.Channel.Items) > 0 {
		out := make([]feedEntry, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			source := strings.TrimSpace(it.Source)
			if source == "" {
				source = strings.TrimSpace(it.Creator)
			}
			if source == "" {
				source = strings.TrimSpace(rss.Channel.Title)
			}
			out = append(out, feedEntry{
				Title:     strings.TrimSpace(it.Title),
				Link:      strings.TrimSpace(it.Link),
				Summary:   it.Description,
				Source:    source,
				Published: parseFeedTime(it.PubDate),
			})
		}
		return out, nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(data, &atom); err == nil && len(atom.Entries) > 0 {
		out := make([]feedEntry, 0, len(atom.Entries))
		for _, e := range atom.Entries {
			link := ""
			for _, l := range e.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			source := strings.TrimSpace(e.Author.Name)
			if source == "" {
				source = strings.TrimSpace(atom.Title)
			}
			out = append(out, feedEntry{
				Title:     strings.TrimSpace(e.Title),
				Link:      strings.TrimSpace(link),
				Summary:   e.Summary,
				Source:    source,
				Published: parseFeedTime(e.Updated),
			})
		}
		return out, nil
	}

	return nil, errors.New("payload is neither RSS 2.0 nor Atom")
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z",
}

func parseFeedTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
