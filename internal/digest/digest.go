// Package digest builds the short HTML body for the daily email.
package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"companion/internal/config"
	appLog "companion/internal/log"
	"companion/internal/market"
	"companion/internal/news"
)

// headline is one deduplicated (source, title) pair.
type headline struct {
	Source string
	Title  string
}

// blurbOrder fixes the ticker order of the markets line.
var blurbOrder = []string{"NVDA", "MSFT", "AMZN", "TSLA", "SPY", "^GSPC"}

// Builder produces the email digest, preferring a local Ollama model when
// configured and falling back to a plain heuristic rendering.
type Builder struct {
	cfg    config.DigestConfig
	client *http.Client
}

func NewBuilder(cfg config.DigestConfig) *Builder {
	return &Builder{
		cfg: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Build assembles the digest HTML: header, synthesized takeaways (or the
// heuristic headline list), markets line, and optional report/ICS links.
func (b *Builder) Build(ctx context.Context, items []news.Item, stats map[string]market.Stats, reportURL, icsURL string) string {
	heads := collectHeadlines(items, b.cfg.HeadlineCount)
	blurb := marketsBlurb(stats)

	core := ""
	if b.cfg.OllamaURL != "" {
		synth, err := b.ollamaDigest(ctx, heads, blurb)
		if err != nil {
			appLog.Error("ollama digest failed, using heuristic", err, "model", b.cfg.OllamaModel)
		} else {
			core = synth
		}
	}
	if core == "" {
		core = heuristicDigest(heads, blurb)
	}

	parts := []string{
		fmt.Sprintf("<h3>Daily Companion Digest — %s</h3>", time.Now().Format("2006-01-02")),
		core,
	}
	if reportURL != "" {
		parts = append(parts, fmt.Sprintf(`<p>Full report: <a href="%s">%s</a></p>`, reportURL, reportURL))
	}
	if icsURL != "" {
		parts = append(parts, fmt.Sprintf(`<p>Subscribe to your study blocks: <a href="%s">%s</a></p>`, icsURL, icsURL))
	}
	return strings.Join(parts, "\n")
}

// collectHeadlines returns up to k deduplicated headlines in feed order.
func collectHeadlines(items []news.Item, k int) []headline {
	if k <= 0 {
		k = 5
	}
	seen := make(map[[2]string]bool)
	out := make([]headline, 0, k)
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		source := strings.TrimSpace(it.Source)
		if source == "" {
			source = "News"
		}
		key := [2]string{strings.ToLower(source), strings.ToLower(title)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, headline{Source: source, Title: title})
		if len(out) >= k {
			break
		}
	}
	return out
}

// marketsBlurb renders "NVDA +1.23% | MSFT -0.40% | ..." for known tickers.
func marketsBlurb(stats map[string]market.Stats) string {
	parts := make([]string, 0, len(blurbOrder))
	for _, tk := range blurbOrder {
		st, ok := stats[tk]
		if !ok && tk == "^GSPC" {
			st, ok = stats["SPY"]
		}
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %+.2f%%", tk, st.PctChange))
	}
	return strings.Join(parts, " | ")
}

func heuristicDigest(heads []headline, blurb string) string {
	var b strings.Builder
	b.WriteString("<h4>Top takeaways</h4><ul>")
	if len(heads) == 0 {
		b.WriteString("<li>No headlines today.</li>")
	}
	for _, h := range heads {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(h.Title))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	if blurb != "" {
		b.WriteString("<p><strong>Markets:</strong> ")
		b.WriteString(html.EscapeString(blurb))
		b.WriteString("</p>")
	}
	return b.String()
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
}

// ollamaDigest asks a local Ollama model to synthesize the headlines into
// minimal HTML.
func (b *Builder) ollamaDigest(ctx context.Context, heads []headline, blurb string) (string, error) {
	lang := "Spanish"
	if b.cfg.Lang == "en" {
		lang = "English"
	}

	var hl strings.Builder
	for _, h := range heads {
		fmt.Fprintf(&hl, "- [%s] %s\n", h.Source, h.Title)
	}
	if hl.Len() == 0 {
		hl.WriteString("(no headlines)\n")
	}

	sysPrompt := fmt.Sprintf(
		"You are a concise financial/tech briefing assistant. Respond in %s. "+
			"Return ONLY minimal HTML (h4, ul/li, p, strong). No CSS, no code fences.\n\n"+
			"Write EXACTLY one section:\n"+
			"  <h4>Top takeaways</h4>\n"+
			"    • 3–5 bullets synthesized across headlines (not title restatement).\n\n"+
			"Rules:\n"+
			"- Use ONLY the provided headlines; DO NOT invent facts.\n"+
			"- Each bullet ≤ 18 words.\n"+
			"- If a markets line is provided, append a final <p><strong>Markets:</strong> ...</p> exactly.\n"+
			"- Do NOT include any other sections or links.",
		lang,
	)
	userPrompt := fmt.Sprintf("Headlines:\n%s\nMarkets: %s\n", hl.String(), orNone(blurb))

	payload := ollamaRequest{
		Model: b.cfg.OllamaModel,
		Messages: []ollamaMessage{
			{Role: "system", Content: sysPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:  false,
		Options: map[string]any{"temperature": 0.2, "num_ctx": 4096},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(b.cfg.OllamaURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: %s", resp.Status)
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return stripCodeFences(decoded.Message.Content), nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// stripCodeFences removes wrapping ``` / ```html fences a model may emit.
func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		parts := strings.Split(t, "```")
		if len(parts) >= 3 {
			t = parts[1]
			t = strings.TrimPrefix(t, "html")
		}
	}
	return strings.TrimSpace(t)
}
