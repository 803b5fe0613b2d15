package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryList collects key from repeated and comma-separated parameters,
// trimmed and without blanks. It fails when more than max values are given.
func ParseQueryList(r *http.Request, key string, max int) ([]string, error) {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = SanitizeString(part, 140); part != "" {
				out = append(out, part)
			}
		}
	}
	if max > 0 && len(out) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many values").WithDetails(map[string]any{"field": key, "max": max})
	}
	return out, nil
}
