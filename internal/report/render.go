// Package report renders the daily companion HTML report.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"companion/internal/agenda"
	appLog "companion/internal/log"
	"companion/internal/market"
	"companion/internal/news"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

// EventView is one agenda row.
type EventView struct {
	Time    string
	Summary string
}

// TopicGroup is the news of one topic, newest first.
type TopicGroup struct {
	Topic string
	Items []news.Item
}

// MarketCard is one ticker's stats plus sparkline geometry.
type MarketCard struct {
	Ticker    string
	Last      string
	PctChange string
	PctClass  string // up / down / flat
	Min       string
	Max       string
	Std       string
	// Points is an SVG polyline of the close series, or "" without data.
	Points string
}

// Data is everything the template needs.
type Data struct {
	GeneratedAt string
	Timezone    string
	Events      []EventView
	Slots       []string
	NewsGroups  []TopicGroup
	Markets     []MarketCard
}

// Build assembles template data from the pipeline outputs.
func Build(
	events []agenda.Event,
	slots []agenda.Slot,
	items []news.Item,
	prices map[string][]market.Quote,
	stats map[string]market.Stats,
	windowDays int,
	now time.Time,
	tzName string,
) Data {
	d := Data{
		GeneratedAt: now.Format("2006-01-02 15:04"),
		Timezone:    tzName,
	}

	for _, ev := range events {
		d.Events = append(d.Events, EventView{
			Time:    ev.Start.Format("15:04"),
			Summary: ev.Summary,
		})
	}
	for _, s := range slots {
		d.Slots = append(d.Slots, s.String())
	}

	d.NewsGroups = groupNews(items)
	d.Markets = marketCards(prices, stats, windowDays)
	return d
}

// groupNews buckets items by topic, newest first inside each bucket, with
// the AI topic leading the section.
func groupNews(items []news.Item) []TopicGroup {
	byTopic := make(map[string][]news.Item)
	for _, it := range items {
		topic := strings.TrimSpace(it.Topic)
		if topic == "" {
			topic = news.TopicGeneral
		}
		byTopic[topic] = append(byTopic[topic], it)
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		ai, aj := strings.EqualFold(topics[i], "ai"), strings.EqualFold(topics[j], "ai")
		if ai != aj {
			return ai
		}
		return topics[i] < topics[j]
	})

	out := make([]TopicGroup, 0, len(topics))
	for _, t := range topics {
		group := byTopic[t]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Published.After(group[j].Published)
		})
		out = append(out, TopicGroup{Topic: t, Items: group})
	}
	return out
}

func marketCards(prices map[string][]market.Quote, stats map[string]market.Stats, windowDays int) []MarketCard {
	tickers := make([]string, 0, len(stats))
	for t := range stats {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]MarketCard, 0, len(tickers))
	for _, t := range tickers {
		st := stats[t]
		cls := "flat"
		switch {
		case st.PctChange > 0:
			cls = "up"
		case st.PctChange < 0:
			cls = "down"
		}
		out = append(out, MarketCard{
			Ticker:    t,
			Last:      fmt.Sprintf("%.2f", st.Last),
			PctChange: fmt.Sprintf("%+.2f%%", st.PctChange),
			PctClass:  cls,
			Min:       fmt.Sprintf("%.2f", st.Min),
			Max:       fmt.Sprintf("%.2f", st.Max),
			Std:       fmt.Sprintf("%.2f", st.Std),
			Points:    sparklinePoints(prices[t], windowDays),
		})
	}
	return out
}

// sparklinePoints maps the trailing closes onto a 120x32 viewBox polyline.
func sparklinePoints(series []market.Quote, windowDays int) string {
	if windowDays > 0 && len(series) > windowDays {
		series = series[len(series)-windowDays:]
	}
	if len(series) < 2 {
		return ""
	}

	minV, maxV := series[0].Close, series[0].Close
	for _, q := range series {
		if q.Close < minV {
			minV = q.Close
		}
		if q.Close > maxV {
			maxV = q.Close
		}
	}
	span := maxV - minV
	if span == 0 {
		span = 1
	}

	const w, h = 120.0, 32.0
	var b strings.Builder
	for i, q := range series {
		x := w * float64(i) / float64(len(series)-1)
		y := h - (q.Close-minV)/span*h
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

// Render executes the embedded template.
func Render(d Data) ([]byte, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders d and writes it to path, creating parent directories.
func Write(path string, d Data) error {
	html, err := Render(d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return err
	}
	appLog.Info("report written", "path", path, "bytes", len(html))
	return nil
}
