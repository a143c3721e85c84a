package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cadcore-go/cadcore"
)

var tracer = otel.Tracer("github.com/cadcore-go/cadcore/notify")
var meter = otel.Meter("github.com/cadcore-go/cadcore/notify")

var (
	publishDuration metric.Float64Histogram
	publishFailures metric.Int64Counter
	fanoutDuration  metric.Float64Histogram
	fanoutFailures  metric.Int64Counter
)

func init() {
	var err error
	publishDuration, err = meter.Float64Histogram(
		"notify.publish.duration",
		metric.WithDescription("Duration of a single Publisher.Publish call."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("notify: failed to init 'notify.publish.duration' instrument")
	}
	publishFailures, err = meter.Int64Counter(
		"notify.publish.failures",
		metric.WithDescription("Number of Publisher.Publish calls that failed."),
	)
	if err != nil {
		panic("notify: failed to init 'notify.publish.failures' instrument")
	}
	fanoutDuration, err = meter.Float64Histogram(
		"notify.fanout.duration",
		metric.WithDescription("Duration of fanning a single ProjectChanged message out into DataChanged events."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("notify: failed to init 'notify.fanout.duration' instrument")
	}
	fanoutFailures, err = meter.Int64Counter(
		"notify.fanout.failures",
		metric.WithDescription("Number of ProjectChanged messages that failed to fan out."),
	)
	if err != nil {
		panic("notify: failed to init 'notify.fanout.failures' instrument")
	}
}

func measurePublish(ctx context.Context, projectID cadcore.ProjectID, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String("project.id", projectID.String()))
	if succeeded {
		publishDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
	} else {
		publishFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}

func measureFanout(ctx context.Context, projectName string, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String("project.name", projectName))
	if succeeded {
		fanoutDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
	} else {
		fanoutFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}
