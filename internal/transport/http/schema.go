package apihttp

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema guards the ingest endpoint. Probability maps use string
// keys because upstream emits price levels as JSON object keys.
const snapshotSchema = `{
  "type": "object",
  "required": ["symbol", "timestamp", "current_price", "probability_below"],
  "properties": {
    "symbol": {"type": "string", "minLength": 1},
    "timestamp": {"type": "integer", "minimum": 0},
    "current_price": {"type": ["number", "string"]},
    "probability_below": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": ["number", "string"]}
    },
    "probability_above": {
      "type": "object",
      "additionalProperties": {"type": ["number", "string"]}
    }
  }
}`

func compileSnapshotSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(snapshotSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("snapshot.json")
}
