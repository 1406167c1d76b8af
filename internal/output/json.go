package output

import (
	"encoding/json"
	"io"

	"github.com/paritylens/paritylens/internal/models"
)

// JSONFormatter writes the full result as indented JSON. Undefined rates
// serialize as null, never as 0.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(res *models.RunResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
