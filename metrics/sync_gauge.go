package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

type gaugeEntry struct {
	value int64
	attrs attribute.Set
}

// Int64SyncGauge exposes an otel observable gauge behind a synchronous Set
// API. The poll loop sets the latest value per attribute set and the
// registered callback reports them all at collection time.
type Int64SyncGauge struct {
	gauge api.Int64ObservableGauge

	mu      sync.RWMutex
	entries map[string]gaugeEntry
}

func NewInt64SyncGauge(meter api.Meter, name string, options ...api.Int64ObservableGaugeOption) (*Int64SyncGauge, error) {
	g := &Int64SyncGauge{
		entries: make(map[string]gaugeEntry),
	}
	options = append(options, api.WithInt64Callback(func(ctx context.Context, observer api.Int64Observer) error {
		g.mu.RLock()
		defer g.mu.RUnlock()
		for _, entry := range g.entries {
			observer.Observe(entry.value, api.WithAttributeSet(entry.attrs))
		}
		return nil
	}))
	gauge, err := meter.Int64ObservableGauge(name, options...)
	if err != nil {
		return nil, err
	}
	g.gauge = gauge
	return g, nil
}

// Set records the current value for the given attribute set, replacing any
// previous value recorded under the same attributes.
func (g *Int64SyncGauge) Set(value int64, attr ...attribute.KeyValue) {
	g.mu.Lock()
	defer g.mu.Unlock()
	attrs := attribute.NewSet(attr...)
	g.entries[attrs.Encoded(attribute.DefaultEncoder())] = gaugeEntry{value, attrs}
}
