package domain

import (
	"testing"
	"time"
)

func TestQuoteCloses(t *testing.T) {
	q := Quote{Series: []PriceBar{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100.5},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 101.25},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 99.75},
	}}
	closes := q.Closes()
	if len(closes) != 3 || closes[0] != 100.5 || closes[2] != 99.75 {
		t.Errorf("Closes not in series order: %v", closes)
	}
}

func TestQuoteClosesEmptySeries(t *testing.T) {
	q := Quote{Symbol: "AAPL"}
	if closes := q.Closes(); len(closes) != 0 {
		t.Errorf("expected empty closes, got %v", closes)
	}
}

func TestCoinGeckoIDReverseMapping(t *testing.T) {
	if len(CoinGeckoIDToAsset) != len(CryptoPairs) {
		t.Fatalf("reverse map size %d, want %d", len(CoinGeckoIDToAsset), len(CryptoPairs))
	}
	for asset, pair := range CryptoPairs {
		if got := CoinGeckoIDToAsset[pair.CoinGeckoID]; got != asset {
			t.Errorf("CoinGeckoIDToAsset[%q] = %q, want %q", pair.CoinGeckoID, got, asset)
		}
	}
}

func TestCryptoAssetsArePaired(t *testing.T) {
	for _, asset := range CryptoAssets {
		pair, ok := CryptoPairs[asset]
		if !ok {
			t.Errorf("asset %q has no pair entry", asset)
			continue
		}
		if pair.UpbitMarket == "" || pair.CoinGeckoID == "" {
			t.Errorf("pair for %q incomplete: %+v", asset, pair)
		}
	}
}

func TestDefaultMacroSeriesIncludesVIX(t *testing.T) {
	found := false
	for _, s := range DefaultMacroSeries {
		if s.Name == MacroVIX {
			found = true
			if s.ID != "VIXCLS" {
				t.Errorf("VIX series ID = %q, want VIXCLS", s.ID)
			}
		}
		if s.Name == "" || s.ID == "" {
			t.Errorf("incomplete macro series: %+v", s)
		}
	}
	if !found {
		t.Error("DefaultMacroSeries missing VIX")
	}
}
