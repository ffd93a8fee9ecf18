package collect

import (
	"context"
	"fmt"
	"math"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DomesticPriceSource fetches the KRW spot price for one domestic market.
type DomesticPriceSource interface {
	Name() string
	FetchDomesticPrice(ctx context.Context, market string) (float64, error)
}

// GlobalPriceSource fetches USD spot prices for a batch of asset IDs.
type GlobalPriceSource interface {
	Name() string
	FetchGlobalPrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// PremiumCollector measures the domestic-vs-global price gap per asset.
type PremiumCollector struct {
	tracer       trace.Tracer
	domestic     DomesticPriceSource
	global       GlobalPriceSource
	pairs        map[string]domain.CryptoPair
	assets       []string
	policy       RetryPolicy
	fallbackRate float64
	pause        time.Duration
}

func NewPremiumCollector(
	tracer trace.Tracer,
	domestic DomesticPriceSource,
	global GlobalPriceSource,
	pairs map[string]domain.CryptoPair,
	assets []string,
	policy RetryPolicy,
	fallbackRate float64,
	pause time.Duration,
) *PremiumCollector {
	return &PremiumCollector{
		tracer:       tracer,
		domestic:     domestic,
		global:       global,
		pairs:        pairs,
		assets:       assets,
		policy:       policy,
		fallbackRate: fallbackRate,
		pause:        pause,
	}
}

// Collect computes the premium for every tracked asset. A non-positive
// rate means no live USD/KRW rate was available this run, so the
// configured fallback rate is used and every record is tagged with it.
func (c *PremiumCollector) Collect(ctx context.Context, rate float64) domain.PremiumBatch {
	ctx, span := c.tracer.Start(ctx, "collect.premium")
	defer span.End()

	rateIsFallback := false
	if rate <= 0 {
		rate = c.fallbackRate
		rateIsFallback = true
	}
	span.SetAttributes(
		attribute.Float64("rate_used", rate),
		attribute.Bool("rate_is_fallback", rateIsFallback),
	)

	batch := domain.PremiumBatch{
		Premiums:       make(map[string]*domain.PremiumRecord, len(c.assets)),
		RateUsed:       rate,
		RateIsFallback: rateIsFallback,
		CollectedAt:    time.Now().UTC(),
	}

	globals, globalErr := c.fetchGlobals(ctx)

	for i, asset := range c.assets {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
		}

		record := c.collectAsset(ctx, asset, rate, rateIsFallback, globals, globalErr)
		batch.Premiums[asset] = record
		if record.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("successful", batch.Successful),
		attribute.Int("failed", batch.Failed),
	)
	return batch
}

// fetchGlobals pulls every asset's USD price in one batched call.
func (c *PremiumCollector) fetchGlobals(ctx context.Context) (map[string]float64, error) {
	ids := make([]string, 0, len(c.assets))
	for _, asset := range c.assets {
		if pair, ok := c.pairs[asset]; ok {
			ids = append(ids, pair.CoinGeckoID)
		}
	}

	var prices map[string]float64
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		p, err := c.global.FetchGlobalPrices(ctx, ids)
		if err != nil {
			return err
		}
		prices = p
		return nil
	})
	return prices, err
}

func (c *PremiumCollector) collectAsset(
	ctx context.Context,
	asset string,
	rate float64,
	rateIsFallback bool,
	globals map[string]float64,
	globalErr error,
) *domain.PremiumRecord {
	ctx, span := c.tracer.Start(ctx, "collect.premium-asset")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	record := &domain.PremiumRecord{
		Asset:          asset,
		RateUsed:       rate,
		RateIsFallback: rateIsFallback,
		FetchedAt:      time.Now().UTC(),
	}

	pair, ok := c.pairs[asset]
	if !ok {
		record.Error = fmt.Sprintf("unknown asset %s", asset)
		return record
	}
	record.DomesticMarket = pair.UpbitMarket

	if globalErr != nil {
		span.RecordError(globalErr)
		record.Error = ReasonAllSourcesFailed
		return record
	}
	globalUSD, ok := globals[pair.CoinGeckoID]
	if !ok || globalUSD <= 0 {
		record.Error = fmt.Sprintf("no global price for %s", pair.CoinGeckoID)
		return record
	}

	var domestic float64
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		p, err := c.domestic.FetchDomesticPrice(ctx, pair.UpbitMarket)
		if err != nil {
			return err
		}
		domestic = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		record.Error = ReasonAllSourcesFailed
		return record
	}

	globalKRW := globalUSD * rate
	premium := (domestic - globalKRW) / globalKRW * 100

	record.DomesticPriceKRW = domestic
	record.GlobalPriceUSD = globalUSD
	record.GlobalPriceKRW = round2(globalKRW)
	record.PremiumPercent = round2(premium)
	record.Status, record.Advice = premiumStatus(premium)
	record.Success = true
	span.SetAttributes(attribute.Float64("premium_percent", record.PremiumPercent))
	return record
}

// premiumStatus maps a premium percentage onto the five advice bands.
func premiumStatus(premium float64) (string, string) {
	switch {
	case premium > 5:
		return domain.PremiumHigh, "domestic price well above global, overseas venues cheaper"
	case premium > 2:
		return domain.PremiumModerate, "domestic price slightly above global"
	case premium < -5:
		return domain.PremiumHighDiscount, "domestic price well below global, domestic venues cheaper"
	case premium < -2:
		return domain.PremiumDiscount, "domestic price slightly below global"
	default:
		return domain.PremiumBalanced, "domestic and global prices aligned"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
