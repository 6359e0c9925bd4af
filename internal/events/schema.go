package events

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// catalogSchemaJSON describes the shape of a catalog document. Trigger scalars are not
// typed here: a malformed one leaves its constraint unset and is dropped by the decoder.
const catalogSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["events"],
  "properties": {
    "events": {
      "type": "array",
      "items": { "$ref": "#/definitions/event" }
    }
  },
  "definitions": {
    "event": {
      "type": "object",
      "required": ["id", "title", "category", "urgency", "choices"],
      "properties": {
        "id":          { "type": "string", "minLength": 1 },
        "title":       { "type": "string" },
        "description": { "type": "string" },
        "category":    { "type": "string", "minLength": 1 },
        "urgency":     { "type": "integer", "minimum": 1, "maximum": 5 },
        "locked":      { "type": "boolean" },
        "trigger":     { "$ref": "#/definitions/trigger" },
        "choices": {
          "type": "array",
          "minItems": 1,
          "items": { "$ref": "#/definitions/choice" }
        }
      }
    },
    "trigger": {
      "type": "object",
      "properties": {
        "blocked_by": { "type": "array", "items": { "type": "string" } },
        "requires":   { "type": "array", "items": { "type": "string" } },
        "metrics":    { "type": "object" },
        "required_choices": {
          "type": "array",
          "items": { "type": "object" }
        },
        "provinces": { "type": "object" }
      }
    },
    "choice": { "type": "string" }
            }
          }
        },
        "provinces": {
          "type": "object",
          "required": ["state"],
          "properties": {
            "state":     { "type": "string" },
            "min_count": { "type": "integer", "minimum": 0 }
          }
        }
      }
    },
    "choice": {
      "type": "object",
      "required": ["id", "text"],
      "properties": {
        "id":      { "type": "string", "minLength": 1 },
        "text":    { "type": "string" },
        "effects": { "type": "object", "additionalProperties": { "type": "number" } },
        "unlocks": { "type": "array", "items": { "type": "string" } },
        "regional": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["delta"],
            "properties": {
              "province":    { "type": "string" },
              "ideology":    { "type": "string" },
              "ideologies":  { "type": "array", "items": { "type": "string" } },
              "all":         { "type": "boolean" },
              "delta":       { "type": "number" },
              "description": { "type": "string" },
              "duration":    { "type": "integer", "minimum": 0 }
            }
          }
        }
      }
    }
  }
}`

var catalogSchema = sync.OnceValue(func() *jsonschema.Schema {
	return jsonschema.MustCompileString("catalog.schema.json", catalogSchemaJSON)
})
