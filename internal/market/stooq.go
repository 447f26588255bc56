// Package market downloads daily quotes from Stooq and derives the basic
// per-ticker statistics shown in the report.
package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	appLog "companion/internal/log"
)

// Quote is one daily close.
type Quote struct {
	Date  time.Time
	Close float64
}

// tickerAliases maps index symbols onto tradable proxies Stooq carries.
var tickerAliases = map[string]string{
	"^GSPC": "SPY",
}

// Client fetches daily quote series from Stooq's CSV endpoint.
type Client struct {
	client     *http.Client
	windowDays int
}

// NewClient creates a market client with the given stats lookback window.
func NewClient(windowDays int) *Client {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &Client{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		windowDays: windowDays,
	}
}

// FetchAll downloads quotes for each ticker. Tickers with no data are
// omitted silently; the report simply shows fewer cards.
func (c *Client) FetchAll(ctx context.Context, tickers []string) map[string][]Quote {
	out := make(map[string][]Quote, len(tickers))
	for _, raw := range tickers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tk := raw
		if alias, ok := tickerAliases[tk]; ok {
			tk = alias
		}

		series, err := c.fetchOne(ctx, tk)
		if err != nil {
			appLog.Error("ticker skipped", err, "ticker", raw)
			continue
		}
		if len(series) > 0 {
			out[raw] = series
		}
	}
	return out
}

// fetchOne tries the Stooq symbol variants for tk (plain and ".US").
func (c *Client) fetchOne(ctx context.Context, tk string) ([]Quote, error) {
	// Extra margin so the window has enough trading days.
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -2*c.windowDays)

	var lastErr error
	for _, sym := range symbolCandidates(tk) {
		url := fmt.Sprintf("https://stooq.com/q/d/l/?s=%s&i=d&d1=%s&d2=%s",
			strings.ToLower(sym), start.Format("20060102"), end.Format("20060102"))

		body, err := c.download(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		trimmed := strings.TrimSpace(string(body))
		if trimmed == "" || strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "404") {
			lastErr = fmt.Errorf("symbol %s: no data", sym)
			continue
		}

		series, err := parseQuoteCSV(trimmed)
		if err != nil {
			lastErr = err
			continue
		}
		if len(series) > 0 {
			return series, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no symbol candidate produced data")
	}
	return nil, lastErr
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func symbolCandidates(tk string) []string {
	base := strings.ToUpper(tk)
	if strings.Contains(base, ".US") {
		return []string{base}
	}
	return []string{base, base + ".US"}
}

// parseQuoteCSV parses Stooq's "Date,Open,High,Low,Close,Volume" CSV into a
// chronologically sorted series. Rows with a bad date or close are skipped.
func parseQuoteCSV(data string) ([]Quote, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("csv has no data rows")
	}

	header := records[0]
	dateIdx, closeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("csv header missing Date/Close: %v", header)
	}

	series := make([]Quote, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) <= dateIdx || len(rec) <= closeIdx {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[dateIdx]))
		if err != nil {
			continue
		}
		closeVal, err := strconv.ParseFloat(strings.TrimSpace(rec[closeIdx]), 64)
		if err != nil {
			continue
		}
		series = append(series, Quote{Date: date, Close: closeVal})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
