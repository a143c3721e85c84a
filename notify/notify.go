// Package notify publishes cache-invalidation events after a
// [cadcore.Project]'s log changes, and fans a whole-project event out into
// one granular event per touched data section for subscribers that only
// care about specific sections.
//
// This is an in-process (or single-cluster) pub/sub bus for driving caches
// like cadcore/tracked.CacheValidator — it is not the durable transport
// cadcore/graphstore provides.
package notify

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"

	"github.com/cadcore-go/cadcore"
)

func init() {
	gob.Register(ProjectChanged{})
	gob.Register(DataChanged{})
}

// ProjectChanged notifies that a project's log advanced from one version to
// another, and identifies every document and data section whose content
// could have changed as a result (conservatively: a document/data id it
// names may or may not have actually changed value, but nothing outside
// this set did).
type ProjectChanged struct {
	ProjectID     cadcore.ProjectID
	VersionBefore uint64
	VersionAfter  uint64
	Documents     []cadcore.DocumentId
	Data          []cadcore.DataId
	Timestamp     time.Time
}

// IsEmpty reports whether the log did not actually advance, mirroring the
// teacher's GraphChanged.IsEmpty: a before/after pair with no version
// change carries nothing worth disassembling or publishing further.
func (c ProjectChanged) IsEmpty() bool {
	return c.VersionBefore == c.VersionAfter
}

// DataChanged notifies that one specific data section may have changed, as
// part of the ProjectChanged event identified by ProjectID/VersionAfter.
type DataChanged struct {
	ProjectID    cadcore.ProjectID
	VersionAfter uint64
	Data         cadcore.DataId
	Timestamp    time.Time
}

// Publisher sends [ProjectChanged] events to a pubsub topic (typically a
// `mem://` topic shared in-process with a [Fanout]'s subscription, though
// any gocloud.dev/pubsub driver works).
type Publisher struct {
	topic *pubsub.Topic
}

// NewPublisher returns a Publisher sending to topic.
func NewPublisher(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Publish gob-encodes and sends c. Callers typically invoke this once per
// successful [cadcore.Project.ApplyChanges], with the before/after versions
// and touched ids collected while staging the change.
func (p *Publisher) Publish(ctx context.Context, c ProjectChanged) (err error) {
	ctx, span := tracer.Start(ctx, "notify.Publisher.Publish", trace.WithAttributes(
		attribute.String("project.id", c.ProjectID.String()),
	))
	defer span.End()

	defer func(start time.Time) {
		measurePublish(ctx, c.ProjectID, err == nil, time.Since(start))
	}(time.Now())

	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(c); err != nil {
		err = fmt.Errorf("notify: encode ProjectChanged: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := p.topic.Send(ctx, &pubsub.Message{Body: b.Bytes()}); err != nil {
		err = fmt.Errorf("notify: send ProjectChanged: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Fanout is a [component.Procedure] that receives [ProjectChanged] events
// from source and republishes one [DataChanged] event per touched data
// section to sink, so a subscriber only interested in a handful of data
// sections does not need to decode and inspect every ProjectChanged event
// itself.
//
// It does not acknowledge a ProjectChanged message until every DataChanged
// it implies has been published, preserving an at-least-once delivery
// guarantee across the fan-out.
type Fanout struct {
	projectName string
	source      *pubsub.Subscription
	sink        *pubsub.Topic
}

// NewFanout returns a Fanout reading ProjectChanged events from source and
// publishing DataChanged events to sink. projectName labels the duration
// metric recorded for each handled message (e.g. a project's display name).
func NewFanout(projectName string, source *pubsub.Subscription, sink *pubsub.Topic) component.Procedure {
	return Fanout{projectName: projectName, source: source, sink: sink}
}

func (f Fanout) Exec(l *component.L) {
	logger := component.Logger(l.Context())
	for l.Continue() {
		msg, err := f.source.Receive(l.GraceContext())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			l.Fatalf("notify: cannot receive ProjectChanged messages: %v", err)
		}

		if err := f.handleMessage(l.GraceContext(), msg); err != nil {
			logger.Error("notify: failed to fan out ProjectChanged message", "error", err)
			l.Fatalf("notify: cannot proceed past a failed ProjectChanged message: %v", err)
		}
		msg.Ack()
	}
}

func (f Fanout) handleMessage(ctx context.Context, msg *pubsub.Message) (err error) {
	ctx, span := tracer.Start(ctx, "notify.Fanout.handleMessage")
	defer span.End()

	defer func(start time.Time) {
		measureFanout(ctx, f.projectName, err == nil, time.Since(start))
	}(time.Now())

	var changed ProjectChanged
	if err := gob.NewDecoder(bytes.NewReader(msg.Body)).Decode(&changed); err != nil {
		err = fmt.Errorf("notify: decode ProjectChanged: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if changed.IsEmpty() {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range changed.Data {
		id := id
		g.Go(func() error {
			return f.publishDataChanged(ctx, changed, id)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("notify: publish data changes: %w", err)
	}
	return nil
}

func (f Fanout) publishDataChanged(ctx context.Context, changed ProjectChanged, id cadcore.DataId) error {
	c := DataChanged{
		ProjectID:    changed.ProjectID,
		VersionAfter: changed.VersionAfter,
		Data:         id,
		Timestamp:    changed.Timestamp,
	}
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Errorf("encode DataChanged: %w", err)
	}
	msg := &pubsub.Message{
		Body:     b.Bytes(),
		Metadata: map[string]string{"dataID": id.String()},
	}
	if err := f.sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("send DataChanged: %w", err)
	}
	return nil
}
