// Package schema validates finished records against the catalog JSON Schema
// before they are published.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
)

const schemaURL = "finished_record.schema.json"

//go:embed finished_record.schema.json
var finishedRecordSchema string

// ErrSchemaViolation wraps every validation failure returned by Validate.
var ErrSchemaViolation = domain.ErrSchemaViolation

// Validator checks finished records against the compiled schema. It is safe
// for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true

	if err := c.AddResource(schemaURL, strings.NewReader(finishedRecordSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks the record's JSON form.
func (v *Validator) Validate(rec domain.FinishedRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal finished record: %w", err)
	}
	return v.ValidateJSON(data)
}

// ValidateJSON checks an already serialized record.
func (v *Validator) ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	return nil
}
