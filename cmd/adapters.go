package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/ucuzla/pricescan/internal/config"
	"github.com/ucuzla/pricescan/internal/fetcher"
	"github.com/ucuzla/pricescan/internal/retailer"
)

// buildAdapters wires the retailer adapters over a shared HTTP fetcher.
func buildAdapters(cfg *config.Config) []retailer.Adapter {
	perHost := rate.Limit(cfg.Fetch.RatePerHost)
	burst := cfg.Fetch.BurstPerHost

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RateLimiters: map[string]*rate.Limiter{
			"www.gratis.com":      rate.NewLimiter(perHost, burst),
			"www.rossmann.com.tr": rate.NewLimiter(perHost, burst),
		},
	})

	gratis := retailer.NewGratis(f)
	if cfg.Retailers.GratisBaseURL != "" {
		gratis = gratis.WithBaseURL(cfg.Retailers.GratisBaseURL)
	}
	rossmann := retailer.NewRossmann(f)
	if cfg.Retailers.RossmannBaseURL != "" {
		rossmann = rossmann.WithBaseURL(cfg.Retailers.RossmannBaseURL)
	}

	return []retailer.Adapter{rossmann, gratis}
}
