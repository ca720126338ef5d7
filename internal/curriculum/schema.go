package curriculum

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "grades": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "topics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "display_name", "grade_level", "category", "estimated_hours", "difficulty"],
        "properties": {
          "code": {"type": "string", "minLength": 1},
          "display_name": {"type": "string", "minLength": 1},
          "grade_level": {"type": "string", "minLength": 1},
          "category": {"enum": [
            "numbers-and-operations", "algebra", "functions",
            "geometry", "measurement", "statistics-and-probability"
          ]},
          "prerequisites": {"type": "array", "items": {"type": "string"}},
          "estimated_hours": {"type": "number", "exclusiveMinimum": 0},
          "difficulty": {"type": "integer", "minimum": 1, "maximum": 5},
          "common_gaps": {"type": "array", "items": {"type": "string"}},
          "tutor_tips": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "gap_patterns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "real_gaps"],
        "properties": {
          "code": {"type": "string", "minLength": 1},
          "real_gaps": {"type": "array", "items": {"type": "string"}, "minItems": 1},
          "source": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// ValidateDocument checks a YAML catalogue document against the document
// schema. It returns the violations found; err is only set when the YAML
// cannot be parsed at all.
func ValidateDocument(data []byte) ([]string, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling document schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validating document: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
