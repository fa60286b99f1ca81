// Package template implements the file-backed template store consumed by
// the session orchestrator. Templates are JSON documents validated against
// a schema, cached in memory, and invalidated when the backing file
// changes.
package template

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// Template is a named, ordered set of point instructions.
type Template struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Point is one instruction within a template. Lower priority values are
// rendered first.
type Point struct {
	ID           string `json:"id"`
	Instructions string `json:"instructions"`
	Priority     int    `json:"priority"`
}

const templateSchema = `{
	"type": "object",
	"required": ["id", "name", "points"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"points": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "instructions", "priority"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"instructions": {"type": "string", "minLength": 1},
					"priority": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

func compileSchema() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(templateSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template schema: %w", err)
	}
	return schema, nil
}

// validateDocument checks raw template JSON against the schema.
func validateDocument(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate template: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid template document: %s", errs[0].String())
		}
		return fmt.Errorf("invalid template document")
	}
	return nil
}

// sortPoints orders points by ascending priority, keeping document order
// for equal priorities.
func sortPoints(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Priority < points[j].Priority
	})
}
