package domain

import (
	"fmt"
	"math/rand"
)

// MaxGeoJitter bounds the random offset, in degrees, applied to each coordinate axis
const MaxGeoJitter = 3.0

// Viewport is a browser window size in CSS pixels
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Geolocation is a latitude/longitude pair in degrees
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ColorScheme is the emulated prefers-color-scheme value
type ColorScheme string

const (
	ColorSchemeDark  ColorScheme = "dark"
	ColorSchemeLight ColorScheme = "light"
)

// LocaleRegion ties a timezone to a representative coordinate
type LocaleRegion struct {
	TimezoneID string
	Base       Geolocation
}

// LocaleEntry lists the plausible regions for one locale
type LocaleEntry struct {
	Locale  string
	Regions []LocaleRegion
}

// DefaultLocales is the locale -> (timezone, base coordinate) table
var DefaultLocales = []LocaleEntry{
	{Locale: "en-US", Regions: []LocaleRegion{
		{TimezoneID: "America/New_York", Base: Geolocation{40.7128, -74.0060}},
		{TimezoneID: "America/Chicago", Base: Geolocation{41.8781, -87.6298}},
		{TimezoneID: "America/Denver", Base: Geolocation{39.7392, -104.9903}},
		{TimezoneID: "America/Los_Angeles", Base: Geolocation{34.0522, -118.2437}},
	}},
	{Locale: "en-GB", Regions: []LocaleRegion{{TimezoneID: "Europe/London", Base: Geolocation{51.5074, -0.1278}}}},
	{Locale: "fr-FR", Regions: []LocaleRegion{{TimezoneID: "Europe/Paris", Base: Geolocation{48.8566, 2.3522}}}},
	{Locale: "de-DE", Regions: []LocaleRegion{{TimezoneID: "Europe/Berlin", Base: Geolocation{52.5200, 13.4050}}}},
	{Locale: "es-ES", Regions: []LocaleRegion{{TimezoneID: "Europe/Madrid", Base: Geolocation{40.4168, -3.7038}}}},
}

// MobileViewports are common phone screen sizes
var MobileViewports = []Viewport{
	{Width: 360, Height: 640}, // Android
	{Width: 375, Height: 667}, // iPhone 6/7/8
	{Width: 414, Height: 896}, // iPhone XR/11
	{Width: 412, Height: 915}, // Pixel 5
}

// FingerprintProfile is the browsing identity applied to one session
type FingerprintProfile struct {
	Viewport          Viewport    `json:"viewport"`
	DeviceScaleFactor float64     `json:"device_scale_factor"`
	HasTouch          bool        `json:"has_touch"`
	Locale            string      `json:"locale"`
	TimezoneID        string      `json:"timezone_id"`
	Geolocation       Geolocation `json:"geolocation"`
	ColorScheme       ColorScheme `json:"color_scheme"`
	UserAgent         string      `json:"user_agent,omitempty"`
	Proxy             string      `json:"proxy,omitempty"`
}

// ProfileGenerator samples fingerprint profiles from fixed tables
type ProfileGenerator struct {
	Locales    []LocaleEntry
	Viewports  []Viewport
	UserAgents []string
	Proxies    []string
}

// NewProfileGenerator creates a generator over the default tables
func NewProfileGenerator(userAgents, proxies []string) *ProfileGenerator {
	return &ProfileGenerator{
		Locales:    DefaultLocales,
		Viewports:  MobileViewports,
		UserAgents: userAgents,
		Proxies:    proxies,
	}
}

// Generate builds a self-consistent profile. The same seeded rng yields the same profile.
func (g *ProfileGenerator) Generate(rng *rand.Rand) (*FingerprintProfile, error) {
	if len(g.Locales) == 0 {
		return nil, ErrEmptyLocaleTable
	}
	if len(g.Viewports) == 0 {
		return nil, fmt.Errorf("viewport table is empty")
	}

	entry := g.Locales[rng.Intn(len(g.Locales))]
	if len(entry.Regions) == 0 {
		return nil, fmt.Errorf("locale %s: %w", entry.Locale, ErrEmptyLocaleTable)
	}
	region := entry.Regions[rng.Intn(len(entry.Regions))]

	profile := &FingerprintProfile{
		Viewport:          g.Viewports[rng.Intn(len(g.Viewports))],
		DeviceScaleFactor: float64(1 + rng.Intn(2)),
		HasTouch:          true,
		Locale:            entry.Locale,
		TimezoneID:        region.TimezoneID,
		ColorScheme:       ColorSchemeDark,
	}
	if rng.Intn(2) == 1 {
		profile.ColorScheme = ColorSchemeLight
	}
	profile.Geolocation = Geolocation{
		Latitude:  region.Base.Latitude + jitter(rng),
		Longitude: region.Base.Longitude + jitter(rng),
	}

	if len(g.UserAgents) > 0 {
		profile.UserAgent = g.UserAgents[rng.Intn(len(g.UserAgents))]
	}
	if len(g.Proxies) > 0 {
		profile.Proxy = g.Proxies[rng.Intn(len(g.Proxies))]
	}

	return profile, nil
}

// jitter returns a uniform value in [-MaxGeoJitter, MaxGeoJitter]
func jitter(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * MaxGeoJitter
}
