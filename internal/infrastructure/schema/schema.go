// Package schema checks the documents in the data directory against embedded
// JSON Schemas.
package schema

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bibliodesign/site/internal/domain/entities"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// RawReader reads the raw bytes of a named document
type RawReader interface {
	ReadRaw(ctx context.Context, name string) ([]byte, bool, error)
}

// ValidationError lists every schema violation found in one document
type ValidationError struct {
	Document string
	Errors   []FieldError
}

// FieldError is a single violation at a field path
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s failed validation:\n", ve.Document))
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Result is the outcome for one document
type Result struct {
	Document string
	Present  bool
	Err      error
}

// Documents returns every document name that has a schema, in check order
func Documents() []string {
	names := []string{entities.ContentDocument, entities.UsersDocument}
	for _, c := range entities.Collections {
		names = append(names, c.Document())
	}
	return names
}

func schemaFor(document string) (string, error) {
	file := "collection.json"
	switch document {
	case entities.ContentDocument:
		file = "content.json"
	case entities.UsersDocument:
		file = "users.json"
	case entities.CollectionInquiries.Document():
		file = "inquiries.json"
	}

	data, err := schemaFiles.ReadFile("schemas/" + file)
	if err != nil {
		return "", fmt.Errorf("load schema for %s: %w", document, err)
	}
	return string(data), nil
}

// ValidateDocument checks data against the schema for the named document
func ValidateDocument(document string, data []byte) error {
	schemaContent, err := schemaFor(document)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", entities.ErrMalformedDocument, document, err)
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Document: document,
		Errors:   make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}

// ValidateStore checks every known document present in the store.
// Absent documents are reported with Present false and no error.
func ValidateStore(ctx context.Context, store RawReader) ([]Result, error) {
	var results []Result

	for _, name := range Documents() {
		data, found, err := store.ReadRaw(ctx, name)
		if err != nil {
			return nil, err
		}

		result := Result{Document: name, Present: found}
		if found {
			result.Err = ValidateDocument(name, data)
		}
		results = append(results, result)
	}

	return results, nil
}
