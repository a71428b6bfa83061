package main

import (
	"encoding/json"
	"fmt"

	"github.com/kedastral/forecastcore/pkg/forecast/registry"
)

// intParamKeys lists the registry parameter keys that are always integer
// or integer-coded-enum valued; JSON doesn't distinguish 12 from 12.0, so
// membership here decides whether a bare JSON number becomes registry.I
// or registry.F. Kept in sync with buildTable's validateKeys schemas.
var intParamKeys = map[string]bool{
	"seasonal_period": true,
	"window":          true,
	"window_cycles":   true,
	"harmonics":       true,
	"p": true, "d": true, "q": true,
	"seasonal_p": true, "seasonal_d": true, "seasonal_q": true,
	"error": true, "trend": true, "seasonal": true,
}

// parseModelParams turns a JSON object into a registry.Params map. Bool
// values map to registry.B and numeric lists to registry.FS (a list with a
// non-numeric element is rejected); numbers map to registry.I when the key
// is a known integer parameter, registry.F otherwise.
func parseModelParams(raw string) (registry.Params, error) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("parse model params: %w", err)
	}

	out := make(registry.Params, len(generic))
	for key, v := range generic {
		switch val := v.(type) {
		case bool:
			out[key] = registry.B(val)
		case float64:
			if intParamKeys[key] {
				out[key] = registry.I(int(val))
			} else {
				out[key] = registry.F(val)
			}
		case []any:
			fs := make([]float64, len(val))
			for i, e := range val {
				f, ok := e.(float64)
				if !ok {
					return nil, fmt.Errorf("parse model params: %q must be a numeric list", key)
				}
				fs[i] = f
			}
			out[key] = registry.FS(fs)
		default:
			return nil, fmt.Errorf("parse model params: unsupported type for %q", key)
		}
	}
	return out, nil
}
