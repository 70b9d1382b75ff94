package notebook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bagustris/nbtest/internal/report"
)

// Validate reads and classifies one notebook. It always yields exactly one
// validation outcome: decode failures are folded into the outcome and its
// detail, never returned. Only a structurally valid notebook comes back
// with a usable Document.
func Validate(root, path string) (Document, report.Validation, string) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		// An unreadable file mid-run is local to that notebook; treat it
		// like corruption rather than aborting the run.
		return Document{}, report.ValidationMalformed, fmt.Sprintf("read notebook: %v", err)
	}

	doc, err := Decode(data, path)
	if err != nil {
		var malformed *MalformedError
		if errors.As(err, &malformed) {
			return Document{}, report.ValidationMalformed, malformed.Detail
		}
		var schema *SchemaError
		if errors.As(err, &schema) {
			return Document{}, report.ValidationSchemaError, schema.Detail
		}
		return Document{}, report.ValidationSchemaError, err.Error()
	}

	return doc, report.ValidationValid, ""
}
