package graphstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"

	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadcore-go/cadcore"
)

// errPropertyNotFound and unexpectedPropertyTypeError mirror the failure
// modes of a Cypher query changed without updating the code that reads its
// results: a developer bug, not a recoverable runtime condition.
var errPropertyNotFound = errors.New("graphstore: property not found")

type unexpectedPropertyTypeError struct {
	Type reflect.Type
}

func (e unexpectedPropertyTypeError) Error() string {
	return "graphstore: unexpected property type: " + e.Type.String()
}

// recordProperty constrains getRecordProperty to the handful of Neo4j
// result types this package reads.
type recordProperty interface {
	int64 | []byte
}

func getRecordProperty[T recordProperty](record *neo4j.Record, key string) (value T, err error) {
	prop, exists := record.Get(key)
	if !exists {
		return value, errPropertyNotFound
	}
	v, ok := prop.(T)
	if !ok {
		return value, unexpectedPropertyTypeError{Type: reflect.TypeOf(prop)}
	}
	return v, nil
}

// ErrStaleAppend is returned by Append when fromIndex no longer matches the
// project's stored length — another process appended to the same project's
// log in the meantime. The caller should reload, rebase its staged changes,
// and retry.
var ErrStaleAppend = errors.New("graphstore: stale append: project log has grown since fromIndex was read")

// Store persists a project's log as one Neo4j node per entry, each tagged
// with the project's identity and a zero-based index unique within it.
//
// Every concrete [cadcore.LogEntry] and [cadcore.Change] variant, and every
// module's transaction Payload type, must have been registered with
// encoding/gob — the same requirement [cadcore.Project.MarshalBinary] has —
// before entries referencing them can be appended or loaded.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	mu       logWRMutex
}

// NewStore returns a ready-to-use Store against database, which must already
// have been created and constrained by BootstrapDatabase.
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

// Len returns the number of entries currently stored for id.
func (s *Store) Len(ctx context.Context, id cadcore.ProjectID) (int, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer func() { _ = sess.Close(ctx) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:LogEntry {projectId: $projectId})
			RETURN count(e) AS count
		`, map[string]interface{}{"projectId": id.String()})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		count, err := getRecordProperty[int64](record, "count")
		return count, err
	})
	if err != nil {
		return 0, fmt.Errorf("count log entries: %w", err)
	}
	return int(result.(int64)), nil
}

// Append stores entries as the tail of id's log, starting at fromIndex. It
// fails with ErrStaleAppend, without storing anything, if the project's
// current length is not exactly fromIndex — i.e. entries must be appended
// contiguously, one caller at a time, per project. An empty entries slice is
// a no-op that returns nil without checking the stored length.
func (s *Store) Append(ctx context.Context, id cadcore.ProjectID, fromIndex int, entries []cadcore.LogEntry) (err error) {
	ctx, span := tracer.Start(ctx, "Append", trace.WithAttributes(
		attribute.String("graphstore.project_id", id.String()),
		attribute.Int("graphstore.from_index", fromIndex),
		attribute.Int("graphstore.count", len(entries)),
	))
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil {
			component.Logger(ctx).Error("Failed to close session", "error", cerr, "mode", "write")
		}
	}()

	s.mu.WLock()
	defer s.mu.WUnlock()

	payloads := make([][]byte, len(entries))
	for i, e := range entries {
		b, err := encodeEntry(e)
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", fromIndex+i, err)
		}
		payloads[i] = b
	}

	_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		current, err := currentLength(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if current != fromIndex {
			appendConflictCounter.Add(ctx, 1, attribute.String("graphstore.project_id", id.String()))
			return nil, ErrStaleAppend
		}

		for i, payload := range payloads {
			_, err := tx.Run(ctx, `
				CREATE (e:LogEntry {projectId: $projectId, index: $index, payload: $payload})
			`, map[string]interface{}{
				"projectId": id.String(),
				"index":     fromIndex + i,
				"payload":   payload,
			})
			if err != nil {
				return nil, fmt.Errorf("create log entry %d: %w", fromIndex+i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j execute: %w", err)
	}
	return nil
}

// Load returns every entry stored for id, in index order.
func (s *Store) Load(ctx context.Context, id cadcore.ProjectID) (entries []cadcore.LogEntry, err error) {
	ctx, span := tracer.Start(ctx, "Load", trace.WithAttributes(
		attribute.String("graphstore.project_id", id.String()),
	))
	defer span.End()

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil {
			component.Logger(ctx).Error("Failed to close session", "error", cerr, "mode", "read")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (e:LogEntry {projectId: $projectId})
			RETURN e.payload AS payload
			ORDER BY e.index ASC
		`, map[string]interface{}{"projectId": id.String()})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]cadcore.LogEntry, 0, len(records))
		for _, record := range records {
			payload, err := getRecordProperty[[]byte](record, "payload")
			if err != nil {
				return nil, fmt.Errorf("get payload property: %w", err)
			}
			entry, err := decodeEntry(payload)
			if err != nil {
				return nil, fmt.Errorf("decode entry: %w", err)
			}
			out = append(out, entry)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j execute: %w", err)
	}
	return result.([]cadcore.LogEntry), nil
}

func currentLength(ctx context.Context, tx neo4j.ManagedTransaction, id cadcore.ProjectID) (int, error) {
	res, err := tx.Run(ctx, `
		MATCH (e:LogEntry {projectId: $projectId})
		RETURN count(e) AS count
	`, map[string]interface{}{"projectId": id.String()})
	if err != nil {
		return 0, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	count, err := getRecordProperty[int64](record, "count")
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func encodeEntry(e cadcore.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(b []byte) (cadcore.LogEntry, error) {
	var e cadcore.LogEntry
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&e); err != nil {
		return nil, err
	}
	return e, nil
}
