package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string", "minLength": 1},
    "parameters": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["string", "null"]}
    }
  }
}`

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestSchemaValidator_Validate(t *testing.T) {
	v := MustSchemaValidator(testSchema)

	tests := []struct {
		name       string
		doc        string
		valid      bool
		errorField string
	}{
		{name: "valid with parameters", doc: `{"intent":"PRODUCT_SEARCH","parameters":{"product_name":"pool filter cleaner"}}`, valid: true},
		{name: "valid without parameters", doc: `{"intent":"STORE_INFO"}`, valid: true},
		{name: "null parameters", doc: `{"intent":"STORE_INFO","parameters":null}`, valid: true},
		{name: "missing intent", doc: `{"parameters":{}}`, valid: false, errorField: "(root)"},
		{name: "intent wrong type", doc: `{"intent":3}`, valid: false, errorField: "intent"},
		{name: "parameter wrong type", doc: `{"intent":"PRODUCT_INFO","parameters":{"part_number":["a"]}}`, valid: false, errorField: "parameters.part_number"},
		{name: "not an object", doc: `["PRODUCT_INFO"]`, valid: false, errorField: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(decode(t, tt.doc))
			assert.Equal(t, tt.valid, result.Valid, result.Error())
			if !tt.valid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.errorField, result.Errors[0].Field)
				assert.NotEmpty(t, result.Error())
			}
		})
	}
}

func TestNewSchemaValidator_InvalidSchema(t *testing.T) {
	_, err := NewSchemaValidator(`{"type": 12}`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustSchemaValidator(`{not json`) })
}
