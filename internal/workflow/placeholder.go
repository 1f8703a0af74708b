package workflow

import (
	"strings"

	"toolflow/internal/value"
)

// placeholderIdentifier reports whether v is a placeholder and, if so, the
// identifier between its braces. Only strings that start with "{" and end
// with "}" qualify; the identifier is not trimmed or validated.
func placeholderIdentifier(v value.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok || !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// unresolved names a placeholder parameter that resolveParams dropped.
type unresolved struct {
	param      string
	identifier string
}

// resolveParams builds the parameter mapping passed to the tool for one step.
//
// Context wins over earlier results. A placeholder found in neither is left out
// of the returned map and reported in the second return value, in no
// particular order. Resolved values are never resolved again.
func resolveParams(params map[string]value.Value, wctx Context, results ResultSet) (map[string]value.Value, []unresolved) {
	resolved := make(map[string]value.Value, len(params))
	var missing []unresolved

	for key, v := range params {
		ident, ok := placeholderIdentifier(v)
		if !ok {
			resolved[key] = v
			continue
		}
		if cv, ok := wctx[ident]; ok {
			resolved[key] = cv
			continue
		}
		if rv, ok := results[ident]; ok {
			resolved[key] = rv
			continue
		}
		missing = append(missing, unresolved{param: key, identifier: ident})
	}

	return resolved, missing
}
