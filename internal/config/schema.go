package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, FieldNameTag: "yaml"}
	schema := reflector.Reflect(&Config{})
	schema.Title = "Avatar client configuration"
	return json.MarshalIndent(schema, "", "  ")
}
