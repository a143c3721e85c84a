package graphstore

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/cadcore-go/cadcore/graphstore")
var meter = otel.Meter("github.com/cadcore-go/cadcore/graphstore")

var (
	// appendConflictCounter counts how many Append calls were rejected because
	// the caller's fromIndex was stale (another process already appended past
	// it). This is the durable-store analogue of an optimistic-concurrency
	// retry signal, worth watching for processes that fight over one project.
	appendConflictCounter metric.Int64Counter
)

func init() {
	var err error
	appendConflictCounter, err = meter.Int64Counter(
		"graphstore_append_conflict_counter",
		metric.WithDescription("how many Append calls were rejected due to a stale fromIndex"),
	)
	if err != nil {
		panic(fmt.Sprintf("graphstore: failed to init 'graphstore_append_conflict_counter' instrument: %v", err))
	}
}
