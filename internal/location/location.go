// Package location resolves a best-effort GPS coordinate for initial
// setup. Preference order: IP geolocation, manually configured
// coordinate, fixed fallback. OS-native location services plug in through
// the Provider interface but are not implemented here.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
	"github.com/9531lyj/AutoCheckBJMF/internal/model"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

// Fallback is used when every provider fails (Beijing city centre, the
// project's historical default).
var Fallback = model.Coordinate{Lat: 39.904697, Lng: 116.407178, Alt: 100}

type Provider interface {
	Locate(ctx context.Context) (model.Coordinate, error)
}

// Static returns a fixed coordinate, wrapping a manually entered position.
type Static struct {
	Coord model.Coordinate
}

func (s Static) Locate(context.Context) (model.Coordinate, error) {
	return s.Coord, nil
}

// IPProvider queries public IP-geolocation services in order and returns
// the first usable answer.
type IPProvider struct {
	ipAPIURL   string
	ipinfoURL  string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewIPProvider() *IPProvider {
	return &IPProvider{
		ipAPIURL:  "http://ip-api.com/json/",
		ipinfoURL: "https://ipinfo.io/json",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: logger.Get(),
	}
}

func (p *IPProvider) Locate(ctx context.Context) (model.Coordinate, error) {
	if coord, err := p.fromIPAPI(ctx); err == nil {
		return coord, nil
	} else {
		p.log.Debug().Err(err).Msg("ip-api.com lookup failed")
	}

	if coord, err := p.fromIPInfo(ctx); err == nil {
		return coord, nil
	} else {
		p.log.Debug().Err(err).Msg("ipinfo.io lookup failed")
	}

	return model.Coordinate{}, apperrors.ErrLocationUnknown
}

func (p *IPProvider) fromIPAPI(ctx context.Context) (model.Coordinate, error) {
	var payload struct {
		Status string  `json:"status"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		City   string  `json:"city"`
	}
	if err := p.getJSON(ctx, p.ipAPIURL, &payload); err != nil {
		return model.Coordinate{}, err
	}
	if payload.Status != "success" {
		return model.Coordinate{}, fmt.Errorf("ip-api status: %s", payload.Status)
	}
	p.log.Info().Str("city", payload.City).Msg("Resolved location via IP geolocation")
	return model.Coordinate{Lat: payload.Lat, Lng: payload.Lon, Alt: Fallback.Alt}, nil
}

func (p *IPProvider) fromIPInfo(ctx context.Context) (model.Coordinate, error) {
	var payload struct {
		Loc  string `json:"loc"`
		City string `json:"city"`
	}
	if err := p.getJSON(ctx, p.ipinfoURL, &payload); err != nil {
		return model.Coordinate{}, err
	}

	parts := strings.SplitN(payload.Loc, ",", 2)
	if len(parts) != 2 {
		return model.Coordinate{}, fmt.Errorf("ipinfo loc malformed: %q", payload.Loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("ipinfo lat: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("ipinfo lng: %w", err)
	}
	p.log.Info().Str("city", payload.City).Msg("Resolved location via IP geolocation")
	return model.Coordinate{Lat: lat, Lng: lng, Alt: Fallback.Alt}, nil
}

func (p *IPProvider) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geolocation service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Resolver walks a provider chain and falls back to the fixed default when
// nothing answers. It never fails.
type Resolver struct {
	providers []Provider
	log       zerolog.Logger
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		log:       logger.Get(),
	}
}

func (r *Resolver) Resolve(ctx context.Context) model.Coordinate {
	for _, p := range r.providers {
		coord, err := p.Locate(ctx)
		if err == nil {
			return coord
		}
		r.log.Debug().Err(err).Msg("Location provider failed, trying next")
	}
	r.log.Warn().Msg("All location providers failed, using fixed fallback")
	return Fallback
}
