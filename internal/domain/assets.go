package domain

// CryptoPair maps one tracked crypto asset to its domestic Upbit market
// and its CoinGecko identifier.
type CryptoPair struct {
	UpbitMarket string
	CoinGeckoID string
}

// CryptoPairs lists the assets tracked for premium calculation.
var CryptoPairs = map[string]CryptoPair{
	"BTC": {UpbitMarket: "KRW-BTC", CoinGeckoID: "bitcoin"},
	"ETH": {UpbitMarket: "KRW-ETH", CoinGeckoID: "ethereum"},
	"XRP": {UpbitMarket: "KRW-XRP", CoinGeckoID: "ripple"},
	"SOL": {UpbitMarket: "KRW-SOL", CoinGeckoID: "solana"},
	"ADA": {UpbitMarket: "KRW-ADA", CoinGeckoID: "cardano"},
}

// CoinGeckoIDToAsset is the reverse mapping.
var CoinGeckoIDToAsset map[string]string

func init() {
	CoinGeckoIDToAsset = make(map[string]string, len(CryptoPairs))
	for asset, pair := range CryptoPairs {
		CoinGeckoIDToAsset[pair.CoinGeckoID] = asset
	}
}

// CryptoAssets lists tracked assets in a stable order.
var CryptoAssets = []string{"BTC", "ETH", "XRP", "SOL", "ADA"}

// MacroSeries names one tracked macroeconomic series and its upstream ID.
type MacroSeries struct {
	Name string
	ID   string
}

// MacroVIX is the one macro series with a market-data fallback.
const MacroVIX = "VIX"

// DefaultMacroSeries lists the tracked FRED series in collection order.
var DefaultMacroSeries = []MacroSeries{
	{Name: "FED_RATE", ID: "FEDFUNDS"},
	{Name: "CPI", ID: "CPIAUCSL"},
	{Name: "UNEMPLOYMENT", ID: "UNRATE"},
	{Name: "TREASURY_10Y", ID: "DGS10"},
	{Name: MacroVIX, ID: "VIXCLS"},
}
