package photo

import (
	"strings"

	"asset-tracker-backend/internal/parse"
)

// Resolve merges an item's photo manifest.
//
// declared is the caller's "existing photos" set; nil means the caller did not
// send the field at all. A declared set, even an empty one, replaces current as
// the base. Without a declared set, added files are appended to current. The
// result is always a fresh slice.
func Resolve(current, declared, added []string) []string {
	base := current
	if declared != nil {
		base = declared
	}

	out := make([]string, 0, len(base)+len(added))
	out = append(out, base...)
	out = append(out, added...)
	return out
}

// DecodeDeclared interprets the raw form values of the existing-photos field.
// nil values mean the field was absent and yield a nil (undeclared) set.
//
// Accepted shapes: several values (a literal list), one serialized JSON list,
// or one bare reference. A blank single value declares an empty set. Malformed
// serialized input yields an empty declared set together with the parse error.
func DecodeDeclared(values []string) ([]string, error) {
	if values == nil {
		return nil, nil
	}

	if len(values) > 1 {
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out, nil
	}

	single := strings.TrimSpace(values[0])
	switch {
	case single == "":
		return []string{}, nil
	case strings.HasPrefix(single, "["):
		refs, err := parse.StringList("existingPhotos", single)
		if err != nil {
			return []string{}, err
		}
		return refs, nil
	default:
		return []string{single}, nil
	}
}
