package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// BootstrapDatabase creates the database (if missing) and the constraints
// Store relies on: a node key constraint on (:LogEntry {projectId, index}),
// which both prevents duplicate indices for a project and gives Load's
// ORDER BY an index to use. Idempotent.
func BootstrapDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if err := createDatabase(ctx, d, name); err != nil {
		return fmt.Errorf("create database: %w", err)
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `
			CREATE CONSTRAINT IF NOT EXISTS
			FOR (e:LogEntry)
			REQUIRE (e.projectId, e.index) IS NODE KEY
		`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("create constraints: %w", err)
	}
	return nil
}

func createDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if name == "" {
		panic("graphstore: database name must not be empty")
	}
	if name == "neo4j" {
		panic("graphstore: database name must not be neo4j: reserved for system database")
	}
	if strings.HasPrefix(name, "system") || strings.HasPrefix(name, "_") {
		panic("graphstore: names beginning with an underscore, or prefixed system, are reserved for internal use")
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.Run(ctx, `CREATE DATABASE $name IF NOT EXISTS`, map[string]interface{}{
		"name": name,
	})
	return err
}
