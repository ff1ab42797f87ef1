package output

import (
	"context"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/itchyny/gojq"

	clierrors "github.com/agenticadvertising/addie-shell/internal/errors"
)

// applyFilters runs the --jq and --jsonpath filters from the context, in
// that order. Returns nil when a jq filter produced no results.
func applyFilters(ctx context.Context, data interface{}) (interface{}, error) {
	if query := QueryFromContext(ctx); query != "" {
		results, err := runQuery(query, data)
		if err != nil {
			return nil, err
		}
		switch len(results) {
		case 0:
			return nil, nil
		case 1:
			data = results[0]
		default:
			data = results
		}
	}

	if path := JSONPathFromContext(ctx); path != "" {
		filtered, err := runJSONPath(path, data)
		if err != nil {
			return nil, err
		}
		data = filtered
	}

	return data, nil
}

// runQuery normalizes data to map/slice form, runs a gojq query, and
// returns the results.
func runQuery(query string, data interface{}) ([]interface{}, error) {
	normalized, err := normalizeToInterface(data)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, clierrors.WrapUserError(err, "invalid --jq query", "Example: --jq '.user.email'")
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, clierrors.WrapUserError(err, "invalid --jq query", "Example: --jq '.user.email'")
	}

	var results []interface{}
	iter := code.Run(normalized)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if queryErr, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query error: %v", queryErr)
		}
		results = append(results, v)
	}

	return results, nil
}

// runJSONPath evaluates a JSONPath expression against the normalized data.
func runJSONPath(path string, data interface{}) (interface{}, error) {
	normalized, err := normalizeToInterface(data)
	if err != nil {
		return nil, fmt.Errorf("jsonpath error: %w", err)
	}

	value, err := jsonpath.Get(path, normalized)
	if err != nil {
		return nil, clierrors.WrapUserError(err, "invalid --jsonpath value", "Example: --jsonpath '$.user.id'")
	}
	return value, nil
}
