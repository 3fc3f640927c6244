package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// EncodeJSON writes result as indented UTF-8 JSON. Non-ASCII characters
// are kept as is, so French accents stay readable.
func EncodeJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
