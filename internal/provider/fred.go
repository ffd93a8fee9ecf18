package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const fredBaseURL = "https://api.stlouisfed.org"

// macroHistoryPoints is how many recent observations each series keeps.
const macroHistoryPoints = 12

// FREDProvider fetches macroeconomic series from the St. Louis Fed API.
type FREDProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewFREDProvider(apiKey string, tracer trace.Tracer) *FREDProvider {
	return &FREDProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: fredBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

func (p *FREDProvider) Name() string { return "fred" }

func (p *FREDProvider) Configured() bool { return p.apiKey != "" }

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchSeries returns the latest observations for one series, newest
// first upstream, stored oldest first. Placeholder "." values (weekends,
// unpublished periods) are skipped.
func (p *FREDProvider) FetchSeries(ctx context.Context, name, seriesID string) (*domain.MacroRecord, error) {
	if !p.Configured() {
		return nil, collect.CredentialMissing(p.Name())
	}

	ctx, span := p.tracer.Start(ctx, "fred.fetch-series")
	defer span.End()
	span.SetAttributes(attribute.String("series_id", seriesID))

	u := fmt.Sprintf("%s/fred/series/observations?series_id=%s&api_key=%s&file_type=json&sort_order=desc&limit=%d",
		p.baseURL, url.QueryEscape(seriesID), p.apiKey, macroHistoryPoints*2)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return nil, collect.Data(p.Name(), fmt.Errorf("fred rejected request for %s: %d", seriesID, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, collect.Transient(p.Name(), fmt.Errorf("fred API error %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}

	var parsed fredObservations
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse observations for %s: %w", seriesID, err))
	}

	// Newest first; collect up to macroHistoryPoints valid observations.
	points := make([]domain.MacroPoint, 0, macroHistoryPoints)
	for _, obs := range parsed.Observations {
		if obs.Value == "." {
			continue
		}
		val, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		day, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		points = append(points, domain.MacroPoint{Date: day.UTC(), Value: val})
		if len(points) == macroHistoryPoints {
			break
		}
	}
	if len(points) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no observations for %s", seriesID))
	}

	record := &domain.MacroRecord{
		Name:         name,
		SeriesID:     seriesID,
		CurrentValue: points[0].Value,
		CurrentDate:  points[0].Date,
	}
	if len(points) > 1 {
		prev := points[1].Value
		change := record.CurrentValue - prev
		record.PreviousValue = &prev
		record.Change = &change
		if prev != 0 {
			pct := change / prev * 100
			record.ChangePercent = &pct
		}
	}

	// Store history oldest first.
	for i := len(points) - 1; i >= 0; i-- {
		record.History = append(record.History, points[i])
	}
	return record, nil
}
