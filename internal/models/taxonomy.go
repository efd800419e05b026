package models

// EventTypes is the closed set of event classifications the extractor may
// return. Anything else is a schema violation, not a new category.
var EventTypes = []string{
	"EARNINGS",
	"GUIDANCE",
	"RATING_CHANGE",
	"CEO_EXIT",
	"M&A",
	"MACRO_POLICY",
	"REGULATORY",
	"GEOPOLITICAL",
	"SUPPLY_CHAIN",
	"LEGAL",
	"PRODUCT",
	"MARKET_MOVE",
	"OTHER",
}

// EventWeights drives the deterministic part of the impact score.
var EventWeights = map[string]float64{
	"EARNINGS":      0.9,
	"GUIDANCE":      0.85,
	"RATING_CHANGE": 0.6,
	"CEO_EXIT":      0.75,
	"M&A":           0.9,
	"MACRO_POLICY":  0.95,
	"REGULATORY":    0.8,
	"GEOPOLITICAL":  0.9,
	"SUPPLY_CHAIN":  0.6,
	"LEGAL":         0.55,
	"PRODUCT":       0.5,
	"MARKET_MOVE":   0.7,
	"OTHER":         0.3,
}

// PortfolioMarkets maps the 11 fixed portfolio-exposure bucket keys to their
// display labels. The keys are the only values allowed in
// ExtractedFacts.Markets.
var PortfolioMarkets = map[string]string{
	"fx_usd":            "FX USD",
	"fx_chf":            "FX CHF",
	"fx_eur":            "FX EUR",
	"fx_jpy":            "FX JPY",
	"gold":              "Gold",
	"global_gov_bonds":  "Global Government Bonds",
	"global_corp_bonds": "Global Corporate Bonds",
	"usa_equities":      "USA Equities",
	"emerging_markets":  "Emerging Markets",
	"eu_equities":       "EU (incl. UK and CH) Equities",
	"japan_equities":    "Japan Equities",
}

// MarketKeys lists the bucket keys in a stable order for prompt building.
var MarketKeys = []string{
	"fx_usd",
	"fx_chf",
	"fx_eur",
	"fx_jpy",
	"gold",
	"global_gov_bonds",
	"global_corp_bonds",
	"usa_equities",
	"emerging_markets",
	"eu_equities",
	"japan_equities",
}

func ValidEventType(eventType string) bool {
	_, ok := EventWeights[eventType]
	return ok
}

func ValidMarketKey(key string) bool {
	_, ok := PortfolioMarkets[key]
	return ok
}

// FilterMarketKeys drops any model-suggested market outside the fixed bucket
// set. Unknown values are discarded, never passed through.
func FilterMarketKeys(keys []string) []string {
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if ValidMarketKey(k) {
			filtered = append(filtered, k)
		}
	}
	return filtered
}
