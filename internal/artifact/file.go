package artifact

import (
	"fmt"
	"os"
)

// Load reads the artifact file at path and validates it. A missing file
// yields an error matching fs.ErrNotExist; an invalid one yields *Violations.
func Load(path string, kind Kind, vctx Context) (Validated, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Validated{}, fmt.Errorf("read %s: %w", kind.FileName(), err)
	}
	return Validate(kind, data, vctx)
}
