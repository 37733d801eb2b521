package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// relayerResponseSchema is the JSON Schema every verify/settle body must satisfy
var relayerResponseSchema = gojsonschema.NewStringLoader(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["success"],
	"properties": {
		"success": {"type": "boolean"},
		"message": {"type": "string"},
		"data": {"type": ["object", "null"]}
	}
}`)

// ValidateRelayerResponse checks a relayer response body against the schema
func ValidateRelayerResponse(body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("response body is empty")
	}

	result, err := gojsonschema.Validate(relayerResponseSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("failed to validate response: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("invalid response: %s", strings.Join(errs, "; "))
	}
	return nil
}
