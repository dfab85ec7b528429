package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/profile-images/internal/schemas"
	"github.com/spf13/cobra"
)

var validateResultCmd = &cobra.Command{
	Use:   "validate-result",
	Short: "Validate a saved extraction response against its JSON Schema",
	RunE:  runValidateResult,
}

var (
	validateFile   string
	validateSchema string
)

func init() {
	validateResultCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Path to the JSON response (required)")
	validateResultCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "Path to the JSON Schema (default "+schemas.ExtractionResponseSchema+")")
	_ = validateResultCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(validateResultCmd)
}

func runValidateResult(_ *cobra.Command, _ []string) error {
	schemaPath := validateSchema
	if schemaPath == "" {
		schemaPath = schemas.ResolveSchemaPath(schemas.ExtractionResponseSchema)
		if schemaPath == "" {
			return fmt.Errorf("schema %s not found; pass --schema", schemas.ExtractionResponseSchema)
		}
	}

	err := schemas.ValidateJSON(schemaPath, validateFile)
	if err == nil {
		_, _ = fmt.Fprintf(os.Stdout, "Validation passed: %s\n", validateFile)
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintf(os.Stderr, "Validation failed: %s\n%s", validateFile, validationErr.Error())
		return fmt.Errorf("%d schema violations", len(validationErr.Errors))
	}
	return err
}
