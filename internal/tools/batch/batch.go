// Package batch lets a tool argument name one or many items and collects
// per-item results, so a single bad ID does not fail the whole call.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxItems caps the number of IDs one call may name.
const MaxItems = 25

// Result is the outcome of one item.
type Result[T any] struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary is what a batch tool returns.
type Summary[T any] struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Results    []Result[T] `json:"results"`
}

// ParseIDs reads an argument given as a string, a JSON array encoded in a
// string, or an array of strings. Duplicates are dropped, first
// occurrence wins.
func ParseIDs(param any, name string) ([]string, error) {
	var raw []any
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", name)
	case string:
		var arr []string
		if strings.HasPrefix(strings.TrimSpace(v), "[") && json.Unmarshal([]byte(v), &arr) == nil {
			for _, s := range arr {
				raw = append(raw, s)
			}
		} else {
			raw = []any{v}
		}
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case []any:
		raw = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", name, i)
		}
		if s == "" {
			if len(raw) == 1 {
				return nil, fmt.Errorf("%s cannot be empty", name)
			}
			return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		ids = append(ids, s)
	}
	if len(ids) > MaxItems {
		return nil, fmt.Errorf("%s accepts at most %d items, got %d", name, MaxItems, len(ids))
	}
	return ids, nil
}

// Process calls fn for each ID in order. A failing item does not stop the
// others. Once ctx is done the remaining items fail with its error.
func Process[T any](ctx context.Context, ids []string, fn func(ctx context.Context, id string) (T, error)) Summary[T] {
	s := Summary[T]{Total: len(ids), Results: make([]Result[T], 0, len(ids))}
	for _, id := range ids {
		err := ctx.Err()
		var data T
		if err == nil {
			data, err = fn(ctx, id)
		}
		if err != nil {
			s.Failed++
			s.Results = append(s.Results, Result[T]{ID: id, Status: StatusError, Error: err.Error()})
			continue
		}
		s.Successful++
		s.Results = append(s.Results, Result[T]{ID: id, Status: StatusSuccess, Data: data})
	}
	return s
}

// JSON renders the summary as indented JSON.
func (s Summary[T]) JSON() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format batch results: %w", err)
	}
	return string(b), nil
}
