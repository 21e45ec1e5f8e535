// Package geoip resolves an IP address to a coarse location, preferring
// a pluggable local database lookup and falling back to an online API
// when no local reader is configured or it misses. The local database
// format itself is out of scope here; callers that have one wire it in
// through the LocalLookup interface.
package geoip

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Info is the subset of location data the orchestrator records onto a
// successful test result.
type Info struct {
	Country     string
	CountryCode string
	City        string
	ISP         string
}

const unknown = "Unknown"

// LocalLookup is satisfied by an optional local GeoIP database reader.
// Resolve returns ok=false on any miss, triggering the online fallback.
type LocalLookup interface {
	Resolve(ip string) (Info, bool)
}

// Resolver looks up Info for an IP, trying a local database first (if
// configured) and falling back to public HTTPS APIs.
type Resolver struct {
	local  LocalLookup
	client *http.Client
}

// New builds a Resolver. local may be nil to skip straight to the online
// fallback.
func New(local LocalLookup, client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{local: local, client: client}
}

// Resolve returns location info for ip, consulting the local database
// first, then ipwho.is, then ip-api.com.
func (r *Resolver) Resolve(ctx context.Context, ip string) Info {
	if ip == "" {
		return Info{}
	}
	if r.local != nil {
		if info, ok := r.local.Resolve(ip); ok {
			return info
		}
	}
	return r.resolveOnline(ctx, ip)
}

func (r *Resolver) resolveOnline(ctx context.Context, ip string) Info {
	providers := []string{
		"https://ipwho.is/" + ip,
		"http://ip-api.com/json/" + ip,
	}
	for _, url := range providers {
		if info, ok := r.queryProvider(ctx, url); ok {
			return info
		}
	}
	return Info{}
}

type ipwhoResponse struct {
	Success     *bool  `json:"success"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Connection  struct {
		ISP string `json:"isp"`
		Org string `json:"org"`
	} `json:"connection"`
	ISP string `json:"isp"`
}

func (r *Resolver) queryProvider(ctx context.Context, url string) (Info, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{}, false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Info{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return Info{}, false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Info{}, false
	}

	var parsed ipwhoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Info{}, false
	}
	if parsed.Success != nil && !*parsed.Success {
		return Info{}, false
	}

	isp := parsed.ISP
	if isp == "" {
		isp = parsed.Connection.ISP
	}
	if isp == "" {
		isp = parsed.Connection.Org
	}
	if isp == "" {
		isp = unknown
	}

	country := parsed.Country
	if country == "" {
		country = unknown
	}
	countryCode := parsed.CountryCode
	if countryCode == "" {
		countryCode = "XX"
	}
	city := parsed.City
	if city == "" {
		city = unknown
	}

	return Info{Country: country, CountryCode: countryCode, City: city, ISP: isp}, true
}
