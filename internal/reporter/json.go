package reporter

import (
	"encoding/json"
	"io"

	"github.com/clapgo/clap-validator/internal/runner"
)

// JSON writes result in §6's persisted wire format:
// {plugin-library-tests: {<path>: [TestResult]}, plugin-tests: {<plugin-id>: [TestResult]}}.
func JSON(w io.Writer, result *runner.ValidationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
