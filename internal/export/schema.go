package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultSchema is the JSON schema of a saved extraction
const ResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["requirements", "summary"],
  "properties": {
    "success": {"type": "boolean"},
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["req_num", "text", "tests", "guidance"],
        "properties": {
          "req_num": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)+$"},
          "text": {"type": "string"},
          "tests": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "guidance": {"type": "string"},
          "applicability": {"type": "string"}
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["total", "with_tests", "with_guidance", "total_tests", "language_detection"],
      "properties": {
        "total": {"type": "integer", "minimum": 0},
        "with_tests": {"type": "integer", "minimum": 0},
        "with_guidance": {"type": "integer", "minimum": 0},
        "total_tests": {"type": "integer", "minimum": 0},
        "language_detection": {
          "type": "object",
          "required": ["code", "name", "name_en", "extractor", "confidence", "confidence_percentage"],
          "properties": {
            "code": {"type": "string", "minLength": 1},
            "name": {"type": "string"},
            "name_en": {"type": "string"},
            "extractor": {"type": "string"},
            "confidence": {"type": "number", "minimum": 0, "maximum": 1},
            "confidence_percentage": {"type": "string", "pattern": "^[0-9]{1,3}\\.[0-9]%$"}
          }
        }
      }
    },
    "warnings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "message"]
      }
    }
  }
}`

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", strings.NewReader(ResultSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateJSON checks that data is a saved extraction matching ResultSchema
func ValidateJSON(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
