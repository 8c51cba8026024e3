package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// requestSchema describes the request envelope accepted by the API.
// Parameter contents are validated by the task handlers themselves.
var requestSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"mode"},
	"properties": map[string]interface{}{
		"mode": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"structured", "natural"},
		},
		"task_type": map[string]interface{}{
			"type": "string",
		},
		"query": map[string]interface{}{
			"type": "string",
		},
		"parameters": map[string]interface{}{
			"type": "object",
		},
	},
	"additionalProperties": false,
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// ValidateRequestEnvelope validates the decoded request body against the
// envelope schema.
func ValidateRequestEnvelope(body map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(requestSchema)
	documentLoader := gojsonschema.NewGoLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}

var (
	blobPathPattern   = regexp.MustCompile(`^[a-zA-Z0-9._/\-]+$`)
	storageKeyPattern = regexp.MustCompile(`^[A-Za-z0-9+/=_\-]+$`)
)

// ValidateBlobPath checks that a storage path is non-empty, relative and free
// of traversal or unsupported characters.
func ValidateBlobPath(path string) error {
	if path == "" {
		return fmt.Errorf("blob path is empty")
	}
	if len(path) > 1024 {
		return fmt.Errorf("blob path exceeds 1024 characters")
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("blob path must be relative")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("blob path must not contain traversal segments")
	}
	if !blobPathPattern.MatchString(path) {
		return fmt.Errorf("blob path contains unsupported characters")
	}
	return nil
}

// ValidateStorageKey checks the shape of the storage credential without
// revealing its value in the returned error.
func ValidateStorageKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key is empty")
	}
	if len(key) < 8 || len(key) > 512 {
		return fmt.Errorf("storage key length is out of range")
	}
	if !storageKeyPattern.MatchString(key) {
		return fmt.Errorf("storage key contains unsupported characters")
	}
	return nil
}
