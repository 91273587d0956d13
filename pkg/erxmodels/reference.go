package erxmodels

import (
	"fmt"
	"strings"
)

// FormatReference builds a "Type/id" reference, optionally carrying the
// access code the receiver needs to act on it.
func FormatReference(resourceType, id, accessCode string) string {
	ref := resourceType + "/" + id
	if accessCode != "" {
		ref += "?ac=" + accessCode
	}
	return ref
}

// ParseReference splits a reference produced by FormatReference.
func ParseReference(ref string) (resourceType, id, accessCode string, err error) {
	base := ref
	if i := strings.Index(ref, "?"); i >= 0 {
		base = ref[:i]
		query := ref[i+1:]
		for _, kv := range strings.Split(query, "&") {
			if v, ok := strings.CutPrefix(kv, "ac="); ok {
				accessCode = v
			}
		}
	}
	parts := strings.SplitN(base, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("malformed reference %q", ref)
	}
	return parts[0], parts[1], accessCode, nil
}
