package ytclient

import (
	"github.com/hevcd/hevcd/internal/cookies"
)

// Strategy names, in sweep priority order.
const (
	StrategyBrowserCookies = "browser-cookies"
	StrategyCookieFile     = "cookie-file"
	StrategyIgnoreAgeGate  = "ignore-age-gate"
	StrategyGeoBypass      = "geo-bypass"
	StrategyMinimal        = "minimal-options"
)

// geoBypassCountry is the region forced by the aggressive geo-bypass
// strategy.
const geoBypassCountry = "US"

// Strategy is a named configuration delta applied on top of the base request
// options. Apply reports ok=false when the strategy has nothing to work with
// (e.g. no browser store detected).
type Strategy struct {
	Name  string
	Apply func(base RequestOptions) (RequestOptions, bool)
}

// strategies returns the fixed, ordered fallback list tried when direct
// extraction keeps getting blocked.
func (e *Extractor) strategies() []Strategy {
	return []Strategy{
		{
			Name: StrategyBrowserCookies,
			Apply: func(base RequestOptions) (RequestOptions, bool) {
				stores := e.creds.DetectBrowserStores()
				if len(stores) == 0 {
					return base, false
				}
				base.Credentials = cookies.Source{Kind: cookies.SourceBrowser, Browser: stores[0]}
				return base, true
			},
		},
		{
			Name: StrategyCookieFile,
			Apply: func(base RequestOptions) (RequestOptions, bool) {
				src, ok := e.creds.FileSource()
				if !ok {
					return base, false
				}
				base.Credentials = src
				return base, true
			},
		},
		{
			Name: StrategyIgnoreAgeGate,
			Apply: func(base RequestOptions) (RequestOptions, bool) {
				base.BypassAgeGate = true
				return base, true
			},
		},
		{
			Name: StrategyGeoBypass,
			Apply: func(base RequestOptions) (RequestOptions, bool) {
				base.GeoBypassCountry = geoBypassCountry
				base.BypassAgeGate = true
				return base, true
			},
		},
		{
			Name: StrategyMinimal,
			Apply: func(base RequestOptions) (RequestOptions, bool) {
				return RequestOptions{Credentials: cookies.Source{Kind: cookies.SourceNone}}, true
			},
		},
	}
}
