package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var embeddedSchema []byte

const schemaURL = "schema.json"

// compiledSchema is built once from the embedded schema.json
var compiledSchema = sync.OnceValues(func() (*validator.Schema, error) {
	doc, err := validator.UnmarshalJSON(bytes.NewReader(embeddedSchema))
	if err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}
	c := validator.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add embedded schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}
	return sch, nil
})

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	doc, err := validator.UnmarshalJSON(bytes.NewReader(configData))
	if err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid %s: %w", strings.Join(failedFields(verr), ", "), err)
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// failedFields collects locations of the leaf validation errors as config.section.field
func failedFields(verr *validator.ValidationError) []string {
	if len(verr.Causes) == 0 {
		return []string{strings.Join(append([]string{"config"}, verr.InstanceLocation...), ".")}
	}
	var res []string
	for _, c := range verr.Causes {
		res = append(res, failedFields(c)...)
	}
	return res
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
