// Package fetch downloads artifact payloads with per-host circuit breaking
// layered over the retrying registry client.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/mcu-pkgs/libmirror/client"
)

// ErrCircuitOpen is returned when the breaker for a host is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Fetcher downloads JSON artifact payloads. Retry and backoff for individual
// requests belong to the underlying client; the breaker only short-circuits
// hosts that keep failing across requests.
type Fetcher struct {
	client   *client.Client
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewFetcher creates a Fetcher on top of the given client.
func NewFetcher(c *client.Client) *Fetcher {
	return &Fetcher{
		client:   c,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given host.
func (f *Fetcher) getBreaker(host string) *circuit.Breaker {
	f.mu.RLock()
	breaker, exists := f.breakers[host]
	f.mu.RUnlock()

	if exists {
		return breaker
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := f.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, resets with exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	f.breakers[host] = breaker
	return breaker
}

// FetchJSON downloads and decodes one artifact payload.
func (f *Fetcher) FetchJSON(ctx context.Context, fetchURL string) (any, error) {
	host := extractHost(fetchURL)
	breaker := f.getBreaker(host)

	if !breaker.Ready() {
		return nil, fmt.Errorf("host %s: %w", host, ErrCircuitOpen)
	}

	var payload any
	err := breaker.Call(func() error {
		return f.client.GetJSON(ctx, fetchURL, &payload)
	}, 0)
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// extractHost extracts a host identifier from a URL for breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerStates returns the current state of all circuit breakers.
func (f *Fetcher) BreakerStates() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range f.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
