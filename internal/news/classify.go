package news

import (
	"regexp"
	"sort"

	appLog "companion/internal/log"
)

// TopicGeneral is the fallback topic for entries no pattern selects.
const TopicGeneral = "General"

type topicPatterns struct {
	name     string
	patterns []*regexp.Regexp
}

// Classifier assigns a topic to an article by regex match over its text.
// Topics are checked in sorted name order so classification is
// deterministic; the first matching topic wins.
type Classifier struct {
	topics []topicPatterns
}

// NewClassifier compiles the configured topic patterns. Patterns that fail
// to compile are logged and ignored, matching the tolerance expected of
// user-edited config.
func NewClassifier(topics map[string][]string) *Classifier {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Classifier{topics: make([]topicPatterns, 0, len(names))}
	for _, name := range names {
		tp := topicPatterns{name: name}
		for _, pat := range topics[name] {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				appLog.Error("bad topic pattern ignored", err, "topic", name, "pattern", pat)
				continue
			}
			tp.patterns = append(tp.patterns, re)
		}
		if len(tp.patterns) > 0 {
			c.topics = append(c.topics, tp)
		}
	}
	return c
}

// Classify returns the first topic whose pattern matches text, else
// TopicGeneral.
func (c *Classifier) Classify(text string) string {
	for _, tp := range c.topics {
		for _, re := range tp.patterns {
			if re.MatchString(text) {
				return tp.name
			}
		}
	}
	return TopicGeneral
}
