package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema []byte

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema.
// Checks required fields and numeric minimums, the rest is covered by validate.
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema jsonschema.Schema
	if err := json.Unmarshal(embeddedSchema, &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := checkValue(&schema, &schema, "", configMap); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// checkValue walks the value along the schema, refs resolved against root definitions
func checkValue(root, s *jsonschema.Schema, path string, v any) error {
	s = resolveRef(root, s)
	if s == nil {
		return nil
	}

	switch val := v.(type) {
	case map[string]any:
		for _, name := range s.Required {
			if isEmptyValue(val[name]) {
				return fmt.Errorf("%s is required", joinPath(path, name))
			}
		}
		if s.Properties == nil {
			return nil
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if err := checkValue(root, pair.Value, joinPath(path, pair.Key), val[pair.Key]); err != nil {
				return err
			}
		}
	case []any:
		if s.Items == nil {
			return nil
		}
		for i, item := range val {
			if err := checkValue(root, s.Items, fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case float64:
		if s.Minimum == "" {
			return nil
		}
		minVal, err := s.Minimum.Float64()
		if err != nil {
			return fmt.Errorf("invalid minimum for %s: %w", path, err)
		}
		if val < minVal {
			return fmt.Errorf("%s must be at least %v", path, s.Minimum)
		}
	}
	return nil
}

func resolveRef(root, s *jsonschema.Schema) *jsonschema.Schema {
	if s == nil || s.Ref == "" {
		return s
	}
	name, ok := strings.CutPrefix(s.Ref, "#/$defs/")
	if !ok {
		return s
	}
	return root.Definitions[name]
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// GenerateSchema generates a JSON schema for the Config struct.
// Only fields tagged with jsonschema "required" are marked required.
func GenerateSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true}
	return r.Reflect(&Config{})
}
