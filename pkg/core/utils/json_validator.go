package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/go-playground/validator/v10"
	hjson "github.com/hjson/hjson-go/v4"
)

var validate = validator.New()

// ValidateStruct runs `validate` struct tags against v.
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("JSON_SCHEMA_VIOLATION: %w", err)
	}
	return nil
}

// RepairJSON attempts to fix common JSON errors from LLM outputs
// (unquoted keys, single quotes, trailing commas, unclosed brackets).
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// StripCodeFence removes an outer ``` or ```json fence.
func StripCodeFence(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimPrefix(cleaned, "json")
	return strings.TrimSpace(cleaned)
}

// ParseHJSON converts Hjson (comments, unquoted keys and strings, optional
// commas) to standard JSON.
func ParseHJSON(hjsonData []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(hjsonData, &result); err != nil {
		return nil, fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return jsonBytes, nil
}

// SmartParse decodes input into schema trying, in order: standard JSON,
// repaired JSON, Hjson. The decoded value is then validated.
func SmartParse(input string, schema interface{}) error {
	input = StripCodeFence(input)

	decoded := json.Unmarshal([]byte(input), schema) == nil
	if !decoded {
		if repaired, err := RepairJSON(input); err == nil {
			decoded = json.Unmarshal([]byte(repaired), schema) == nil
		}
	}
	if !decoded {
		if converted, err := ParseHJSON([]byte(input)); err == nil {
			decoded = json.Unmarshal(converted, schema) == nil
		}
	}
	if !decoded {
		return fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
	}
	return ValidateStruct(schema)
}
