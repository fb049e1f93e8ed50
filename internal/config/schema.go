package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaLoader     gojsonschema.JSONLoader
	schemaLoaderErr  error
	schemaLoaderOnce sync.Once
)

// Schema returns the JSON schema configuration documents are validated against.
func Schema() (map[string]any, error) {
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("config: decode schema: %w", err)
	}
	return schemaMap, nil
}

// SchemaError lists every violation reported by schema validation.
type SchemaError struct {
	Issues []string
}

func (e SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "configuration failed schema validation"
	}
	return "configuration failed schema validation: " + strings.Join(e.Issues, "; ")
}

// Validate checks a decoded document against the configuration schema.
func Validate(document any) error {
	loader, err := loadSchema()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("config: schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return SchemaError{Issues: issues}
}

func loadSchema() (gojsonschema.JSONLoader, error) {
	schemaLoaderOnce.Do(func() {
		schemaMap, err := Schema()
		if err != nil {
			schemaLoaderErr = err
			return
		}
		schemaLoader = gojsonschema.NewGoLoader(schemaMap)
	})
	if schemaLoaderErr != nil {
		return nil, schemaLoaderErr
	}
	return schemaLoader, nil
}
