package cadcore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/cadcore-go/cadcore")
var meter = otel.Meter("github.com/cadcore-go/cadcore")

const (
	// projectIDAttr is the attribute key used to associate each record with the
	// project it belongs to, allowing both aggregate and per-project analysis.
	projectIDAttr = "project.id"
)

var (
	// applyDuration measures the duration of a single Project.ApplyChanges call,
	// including the time spent resolving registry vtables for each change.
	applyDuration metric.Float64Histogram
	// applyFailures counts ApplyChanges calls that failed outright (as opposed to
	// individual transactions within a change group being recorded as failed,
	// which is not counted here — see spec.md §4.3 and §7).
	applyFailures metric.Int64Counter
	// replayDuration measures the duration of a full log replay into a ProjectView.
	replayDuration metric.Float64Histogram
)

func init() {
	var err error
	applyDuration, err = meter.Float64Histogram(
		"project.apply.duration",
		metric.WithDescription("Duration of a single Project.ApplyChanges call."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("cadcore: failed to init 'project.apply.duration' instrument")
	}

	applyFailures, err = meter.Int64Counter(
		"project.apply.failures",
		metric.WithDescription("Number of ApplyChanges calls that failed outright."),
	)
	if err != nil {
		panic("cadcore: failed to init 'project.apply.failures' instrument")
	}

	replayDuration, err = meter.Float64Histogram(
		"project.replay.duration",
		metric.WithDescription("Duration of a full project log replay into a ProjectView."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("cadcore: failed to init 'project.replay.duration' instrument")
	}
}

// measureApply records the outcome of a Project.ApplyChanges call, labeled with
// the project's identity so per-project and aggregate analysis are both
// possible.
func measureApply(ctx context.Context, projectID ProjectID, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(projectIDAttr, projectID.String()))
	if succeeded {
		duration := float64(d) / float64(time.Millisecond)
		applyDuration.Record(ctx, duration, metric.WithAttributeSet(attrs))
	} else {
		applyFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}

// measureReplay records the duration of replaying a project's log into a view.
func measureReplay(ctx context.Context, projectID ProjectID, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(projectIDAttr, projectID.String()))
	duration := float64(d) / float64(time.Millisecond)
	replayDuration.Record(ctx, duration, metric.WithAttributeSet(attrs))
}
