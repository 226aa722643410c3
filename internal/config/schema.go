package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	schemavalidate "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce sync.Once
	schemaJSON []byte
	schemaErr  error
)

// JSONSchema returns the JSON Schema for the Config struct, for
// `config schema` and editor tooling.
func JSONSchema() ([]byte, error) {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			FieldNameTag:               "json",
			RequiredFromJSONSchemaTags: true,
		}
		schema := r.Reflect(&Config{})
		schemaJSON, schemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return schemaJSON, schemaErr
}

var (
	compiledOnce sync.Once
	compiled     *schemavalidate.Schema
	compiledErr  error
)

// validateValue checks a decoded config value against the reflected schema.
func validateValue(value any) error {
	compiledOnce.Do(func() {
		raw, err := JSONSchema()
		if err != nil {
			compiledErr = err
			return
		}
		compiled, compiledErr = schemavalidate.CompileString("caretforge.config.schema.json", string(raw))
	})
	if compiledErr != nil {
		return fmt.Errorf("compile config schema: %w", compiledErr)
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
