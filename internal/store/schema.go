package store

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SanitizeSchema validates a schema name before it is interpolated into SQL
func SanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaPattern.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// schemaStatements returns the DDL that EnsureSchema runs, in order
func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.segmentation_runs (
			id uuid PRIMARY KEY,
			source_name text,
			score double precision NOT NULL,
			seed bigint NOT NULL,
			feature_space text NOT NULL,
			cluster_count integer NOT NULL,
			customers integer NOT NULL,
			started_at timestamptz NOT NULL,
			duration_ms bigint NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.segmentation_centers (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.segmentation_runs(id) ON DELETE CASCADE,
			cluster integer NOT NULL,
			label text NOT NULL,
			cluster_size integer NOT NULL,
			recency double precision NOT NULL,
			ticket_count double precision NOT NULL,
			ams double precision NOT NULL,
			cms double precision NOT NULL,
			customer_interactions double precision NOT NULL,
			agent_interactions double precision NOT NULL
		)`, schema, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.segmentation_assignments (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.segmentation_runs(id) ON DELETE CASCADE,
			client_code text NOT NULL,
			cluster integer,
			label text,
			company_name text,
			group_company text,
			brand text,
			recency integer NOT NULL,
			ticket_count integer NOT NULL,
			ams boolean NOT NULL,
			cms boolean NOT NULL,
			customer_interactions double precision NOT NULL,
			agent_interactions double precision NOT NULL
		)`, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_segmentation_centers_run_idx ON %s.segmentation_centers (run_id)`, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_segmentation_assignments_run_idx ON %s.segmentation_assignments (run_id)`, schema, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_segmentation_assignments_code_idx ON %s.segmentation_assignments (client_code)`, schema, schema),
	}
}

// assignmentColumns is the COPY column list of segmentation_assignments
var assignmentColumns = []string{
	"id", "run_id", "client_code", "cluster", "label", "company_name", "group_company", "brand",
	"recency", "ticket_count", "ams", "cms", "customer_interactions", "agent_interactions",
}
