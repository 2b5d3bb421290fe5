package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "grablock://config.schema.json"

// ErrSchema is returned when a configuration document does not match
// the schema.
var ErrSchema = errors.New("config: schema violation")

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a decoded configuration document (the generic
// map produced by any of the TOML, JSON or YAML decoders) against the
// embedded schema. Unknown sections and keys are rejected.
func ValidateDocument(doc any) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so integer and date types from the TOML and
	// YAML decoders become plain JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
