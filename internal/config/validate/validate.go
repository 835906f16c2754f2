package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	ConfigSchema = "config.schema.json"
	SeedSchema   = "seed.schema.json"
	GraphSchema  = "graph.schema.json"

	PackageSpecSchema = "package-spec.schema.json"
)

// Schema returns one of the embedded schema documents.
func Schema(name string) ([]byte, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	return data, nil
}

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. ref selects a sub-schema such as "#/$defs/package".
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}

	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

func validateEmbedded(schemaName string, data []byte) error {
	schema, err := Schema(schemaName)
	if err != nil {
		return err
	}
	return ValidateAgainstSchema(schemaName, schema, data, "")
}

// yamlToJSON converts a YAML document; an empty document becomes {}.
func yamlToJSON(data []byte) ([]byte, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if trimmed := bytes.TrimSpace(jsonData); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte("{}"), nil
	}
	return jsonData, nil
}

func ValidateConfigJSON(data []byte) error {
	return validateEmbedded(ConfigSchema, data)
}

func ValidateSeedJSON(data []byte) error {
	return validateEmbedded(SeedSchema, data)
}

func ValidateGraphJSON(data []byte) error {
	return validateEmbedded(GraphSchema, data)
}

func ValidatePackageSpecJSON(data []byte) error {
	return validateEmbedded(PackageSpecSchema, data)
}

// ValidateConfigYAML validates a global configuration file.
func ValidateConfigYAML(data []byte) error {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return err
	}
	return ValidateConfigJSON(jsonData)
}

// ValidateSeedYAML validates a system provides seed description.
func ValidateSeedYAML(data []byte) error {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return err
	}
	return ValidateSeedJSON(jsonData)
}

// ValidateGraphYAML validates a build graph file.
func ValidateGraphYAML(data []byte) error {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return err
	}
	return ValidateGraphJSON(jsonData)
}

// ValidatePackageSpecYAML validates a package identification file.
func ValidatePackageSpecYAML(data []byte) error {
	jsonData, err := yamlToJSON(data)
	if err != nil {
		return err
	}
	return ValidatePackageSpecJSON(jsonData)
}
