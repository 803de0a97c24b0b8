package provider

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const cbrDateLayout = "02/01/2006"

// RateCache stores one parsed day of central-bank rates per formatted date
// key. Misses and backend errors look the same to the caller.
type RateCache interface {
	Get(ctx context.Context, key string) (map[string]domain.RawQuote, bool)
	Set(ctx context.Context, key string, rates map[string]domain.RawQuote)
}

// CBRProvider fetches the central bank's daily XML feed. It never fails:
// when the feed is unreachable or returns a non-200, only the hard-coded
// base-currency entry comes back.
type CBRProvider struct {
	BaseURL   string
	UserAgent string
	// Watch is the fixed list of currency codes to keep from the feed.
	Watch    []string
	Source   string
	BaseCode string
	Client   *http.Client
	Cache    RateCache
	Log      *zap.Logger
}

var _ application.FiatSource = (*CBRProvider)(nil)

type valCurs struct {
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode  string `xml:"CharCode"`
	Value     string `xml:"Value"`
	VunitRate string `xml:"VunitRate"`
	Nominal   string `xml:"Nominal"`
}

func (p *CBRProvider) Rates(ctx context.Context, day time.Time) map[string]domain.RawQuote {
	log := p.logger()
	key := day.Format(cbrDateLayout)

	if p.Cache != nil {
		if cached, ok := p.Cache.Get(ctx, key); ok {
			return cached
		}
	}

	rates := map[string]domain.RawQuote{
		p.base(): {Rate: 1.0, Nominal: 1, Source: p.Source},
	}

	body, err := p.fetch(ctx, key)
	if err != nil {
		log.Warn("cbr_fetch_failed", zap.String("date", key), zap.Error(err))
		return rates
	}

	parsed := parseCBRXML(body, p.watchSet(), p.Source)
	for code, q := range parsed {
		rates[code] = q
	}
	// Only full fetches are cached; a transient failure must not pin the
	// fallback entry for the rest of the day.
	if p.Cache != nil {
		p.Cache.Set(ctx, key, rates)
	}
	return rates
}

func (p *CBRProvider) fetch(ctx context.Context, formattedDate string) ([]byte, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("cbr: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("date_req", formattedDate)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("cbr: create request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cbr: do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cbr: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseCBRXML extracts the watched Valute entries. The feed declares
// windows-1251, so decoding goes through a charset-aware reader. Individual
// malformed entries are skipped; the rest of the document still parses.
func parseCBRXML(data []byte, wanted map[string]bool, source string) map[string]domain.RawQuote {
	out := map[string]domain.RawQuote{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	var doc valCurs
	if err := dec.Decode(&doc); err != nil {
		return out
	}
	for _, v := range doc.Valutes {
		code := strings.TrimSpace(v.CharCode)
		if code == "" || !wanted[code] {
			continue
		}
		raw := strings.TrimSpace(v.Value)
		if raw == "" {
			raw = strings.TrimSpace(v.VunitRate)
		}
		// The feed uses a locale decimal comma.
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			continue
		}
		nominal := 1
		if n, err := strconv.Atoi(strings.TrimSpace(v.Nominal)); err == nil && n >= 1 {
			nominal = n
		}
		out[code] = domain.RawQuote{
			Rate:    value / float64(nominal),
			Nominal: nominal,
			Source:  source,
		}
	}
	return out
}

func (p *CBRProvider) base() string {
	if p.BaseCode == "" {
		return "RUB"
	}
	return p.BaseCode
}

func (p *CBRProvider) watchSet() map[string]bool {
	set := make(map[string]bool, len(p.Watch))
	for _, c := range p.Watch {
		set[c] = true
	}
	return set
}

func (p *CBRProvider) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
