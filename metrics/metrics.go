package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/datachainlab/crossdomain-relayer/log"
)

const (
	meterName     = "github.com/datachainlab/crossdomain-relayer"
	namespaceRoot = "relayer"
)

var (
	meterProvider *metric.MeterProvider
	meter         api.Meter

	PendingMessagesGauge      *Int64SyncGauge
	ProcessedBlockHeightGauge *Int64SyncGauge
	RelayedMessagesCounter    api.Int64Counter
	RelayFailuresCounter      api.Int64Counter
	ScanFailuresCounter       api.Int64Counter
)

type ExporterConfig interface {
	exporterType() string
}

type ExporterNull struct{}

func (e ExporterNull) exporterType() string { return "null" }

type ExporterProm struct {
	Addr string
}

func (e ExporterProm) exporterType() string { return "prometheus" }

func InitializeMetrics(exporterConf ExporterConfig) error {
	var err error

	switch exporterConf := exporterConf.(type) {
	case ExporterNull:
		meterProvider = metric.NewMeterProvider()
	case ExporterProm:
		if exporter, err := NewPrometheusExporter(exporterConf.Addr); err != nil {
			return err
		} else {
			meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		}
	default:
		panic("unexpected exporter type")
	}

	meter = meterProvider.Meter(meterName)

	// create the instrument "relayer.pending_messages"
	name := fmt.Sprintf("%s.pending_messages", namespaceRoot)
	if PendingMessagesGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("number of indexed messages that are not relayed yet"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.processed_block_height"
	name = fmt.Sprintf("%s.processed_block_height", namespaceRoot)
	if ProcessedBlockHeightGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("latest scanned block height per chain"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.relayed_messages"
	name = fmt.Sprintf("%s.relayed_messages", namespaceRoot)
	if RelayedMessagesCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of messages that are confirmed as relayed"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.relay_failures"
	name = fmt.Sprintf("%s.relay_failures", namespaceRoot)
	if RelayFailuresCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of failed relay submissions"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.scan_failures"
	name = fmt.Sprintf("%s.scan_failures", namespaceRoot)
	if ScanFailuresCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of aborted indexing cycles"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	return nil
}

func ShutdownMetrics(ctx context.Context) error {
	if err := meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown the MeterProvider: %v", err)
	}
	return nil
}

func NewPrometheusExporter(addr string) (*prometheus.Exporter, error) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger := log.GetLogger().WithModule("metrics")
			logger.Fatal("Prometheus exporter server failed", err)
		}
	}()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create the Prometheus Exporter: %v", err)
	}

	return exporter, nil
}
