// Package report publishes traffic and class counts to InfluxDB and as
// OpenTelemetry counters.
package report

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/landing-ai/landingai-go/config"
	"github.com/landing-ai/landingai-go/pkg/tracker"

	custom_logger "github.com/landing-ai/landingai-go/pkg/logger"
)

const (
	meterName              = "github.com/landing-ai/landingai-go/pkg/report"
	trafficMeasurement     = "traffic"
	classCountsMeasurement = "class_counts"
)

// Reporter writes counts to the configured sinks. The InfluxDB sink is
// skipped when disabled in the configuration.
type Reporter struct {
	influx  influxdb2.Client
	writer  api.WriteAPIBlocking
	tracks  metric.Int64Counter
	objects metric.Int64Counter
}

// NewReporter returns a reporter. A nil mp uses the global meter provider.
func NewReporter(cfg config.InfluxDBConfig, mp metric.MeterProvider) (*Reporter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	tracks, err := meter.Int64Counter(
		"traffic.tracks",
		metric.WithDescription("Number of tracks per traffic class"),
		metric.WithUnit("{track}"),
	)
	if err != nil {
		return nil, err
	}
	objects, err := meter.Int64Counter(
		"prediction.objects",
		metric.WithDescription("Number of predictions per label"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	r := &Reporter{tracks: tracks, objects: objects}
	if cfg.Enabled {
		opts := influxdb2.DefaultOptions()
		if cfg.FlushInterval > 0 {
			opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
		}
		r.influx = influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
		r.writer = r.influx.WriteAPIBlocking(cfg.Org, cfg.Bucket)
	}
	return r, nil
}

// ReportTraffic records the counts of one tracked sequence from source.
func (r *Reporter) ReportTraffic(ctx context.Context, source string, counts tracker.Counts, ts time.Time) error {
	logger, _ := custom_logger.GetZapLogger(ctx)

	fields := map[string]int{
		"northbound": counts.Northbound,
		"southbound": counts.Southbound,
		"parked":     counts.Parked,
		"spurious":   counts.Spurious,
	}
	for class, n := range fields {
		r.tracks.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("class", class),
		))
	}

	logger.Info("traffic counts",
		zap.String("source", source),
		zap.Int("northbound", counts.Northbound),
		zap.Int("southbound", counts.Southbound),
		zap.Int("parked", counts.Parked),
		zap.Int("spurious", counts.Spurious),
	)

	return r.write(ctx, trafficMeasurement, source, fields, ts)
}

// ReportClassCounts records the number of predictions per label found in
// the images of source.
func (r *Reporter) ReportClassCounts(ctx context.Context, source string, counts map[string]int, ts time.Time) error {
	if len(counts) == 0 {
		return nil
	}
	for label, n := range counts {
		r.objects.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("label", label),
		))
	}
	return r.write(ctx, classCountsMeasurement, source, counts, ts)
}

func (r *Reporter) write(ctx context.Context, measurement, source string, fields map[string]int, ts time.Time) error {
	if r.writer == nil {
		return nil
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	p := influxdb2.NewPoint(measurement, map[string]string{"source": source}, values, ts)
	if err := r.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("unable to write %s point to influxdb: %w", measurement, err)
	}
	return nil
}

// Close releases the InfluxDB client.
func (r *Reporter) Close() {
	if r.influx != nil {
		r.influx.Close()
	}
}
