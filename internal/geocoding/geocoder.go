package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

const cacheFileName = "geocode_cache.json"

var ErrNoResults = errors.New("no geocoding results")

type Options struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration
	CacheSize   int
	CacheTTL    time.Duration
	// Empty disables cache persistence
	CacheDir string
}

// Geocoder resolves free-form addresses through a Nominatim-compatible
// search endpoint. Results are kept in a bounded cache that can be persisted
// between runs.
type Geocoder struct {
	logger *logrus.Logger
	opts   Options
	client *http.Client
	cache  *expirable.LRU[string, orb.Point]

	initOnce sync.Once
	initErr  error

	rateMu   sync.Mutex
	lastCall time.Time

	saveMu sync.Mutex
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 5000
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Rentals Marketplace/1.0"
	}

	return &Geocoder{
		logger: logger,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		cache:  expirable.NewLRU[string, orb.Point](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// EnsureInitialized prepares the cache directory and loads persisted
// entries. Only the first call does any work.
func (g *Geocoder) EnsureInitialized() error {
	g.initOnce.Do(func() {
		if g.opts.CacheDir == "" {
			return
		}
		if err := os.MkdirAll(g.opts.CacheDir, 0755); err != nil {
			g.initErr = fmt.Errorf("failed to create geocode cache directory: %w", err)
			return
		}
		g.loadCache()
	})
	return g.initErr
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.opts.CacheDir, cacheFileName)
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	var stored map[string][2]float64
	if err := json.Unmarshal(data, &stored); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}
	for key, coords := range stored {
		g.cache.Add(key, orb.Point{coords[0], coords[1]})
	}

	g.logger.Infof("Loaded %d cached addresses", g.cache.Len())
}

// Save writes the live cache entries to disk.
func (g *Geocoder) Save() error {
	if g.opts.CacheDir == "" {
		return nil
	}
	g.saveMu.Lock()
	defer g.saveMu.Unlock()

	stored := make(map[string][2]float64, g.cache.Len())
	for _, key := range g.cache.Keys() {
		if p, ok := g.cache.Peek(key); ok {
			stored[key] = [2]float64{p.Lon(), p.Lat()}
		}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %w", err)
	}
	tmp := g.cacheFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to save geocode cache: %w", err)
	}
	return os.Rename(tmp, g.cacheFile())
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func normalizeKey(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

// Geocode returns the coordinates of address as an orb point (lon, lat).
func (g *Geocoder) Geocode(ctx context.Context, address string) (orb.Point, error) {
	if err := g.EnsureInitialized(); err != nil {
		g.logger.WithError(err).Warn("Geocode cache unavailable")
	}

	key := normalizeKey(address)
	if key == "" {
		return orb.Point{}, fmt.Errorf("empty address")
	}
	if p, ok := g.cache.Get(key); ok {
		g.logger.WithFields(logrus.Fields{
			"address": address,
			"source":  "cache",
		}).Debug("Found coordinates in cache")
		return p, nil
	}

	if err := g.waitTurn(ctx); err != nil {
		return orb.Point{}, err
	}

	g.logger.WithField("address", address).Info("Geocoding address")

	params := url.Values{
		"q":      []string{address},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL, nil)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Geocoding request failed")
		return orb.Point{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orb.Point{}, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Failed to parse response")
		return orb.Point{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		g.logger.WithField("address", address).Warn("No results found")
		return orb.Point{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude %q", result[0].Lat)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude %q", result[0].Lon)
	}
	point := orb.Point{lon, lat}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cache.Add(key, point)
	if err := g.Save(); err != nil {
		g.logger.WithError(err).Error("Failed to persist geocode cache")
	}
	return point, nil
}

// waitTurn spaces outbound requests by MinInterval.
func (g *Geocoder) waitTurn(ctx context.Context) error {
	if g.opts.MinInterval <= 0 {
		return nil
	}
	g.rateMu.Lock()
	defer g.rateMu.Unlock()

	if wait := time.Until(g.lastCall.Add(g.opts.MinInterval)); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastCall = time.Now()
	return nil
}
