package monitoring

import (
	"fmt"
	"io"

	"github.com/syifan/goseth"
)

// Inspect serializes root to w as JSON. Fields selects a nested field to
// start from, and depth limits how deep the serialization goes.
func Inspect(w io.Writer, root any, fields []string, depth int) error {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(depth)

	if len(fields) > 0 {
		err := serializer.SetEntryPoint(fields)
		if err != nil {
			return fmt.Errorf("selecting field %v: %w", fields, err)
		}
	}

	return serializer.Serialize(w)
}
