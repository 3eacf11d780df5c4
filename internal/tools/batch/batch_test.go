package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tooMany := make([]any, MaxItems+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("run-%d", i)
	}

	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{name: "single id", input: "run-1", want: []string{"run-1"}},
		{name: "array", input: []any{"run-1", "run-2"}, want: []string{"run-1", "run-2"}},
		{name: "string slice", input: []string{"run-1"}, want: []string{"run-1"}},
		{name: "json array in a string", input: `["run-1", "run-2"]`, want: []string{"run-1", "run-2"}},
		{name: "bracketed text that is not json", input: "[urgent] run", want: []string{"[urgent] run"}},
		{name: "duplicates dropped in order", input: []any{"b", "a", "b"}, want: []string{"b", "a"}},
		{name: "nil", input: nil, wantErr: "run_id is required"},
		{name: "empty string", input: "", wantErr: "run_id cannot be empty"},
		{name: "empty array", input: []any{}, wantErr: "run_id cannot be empty"},
		{name: "empty json array", input: "[]", wantErr: "run_id cannot be empty"},
		{name: "non-string item", input: []any{"run-1", 7}, wantErr: "run_id[1] must be a string"},
		{name: "empty item", input: []any{"run-1", ""}, wantErr: "run_id[1] cannot be empty"},
		{name: "number", input: 3.0, wantErr: "run_id must be a string or array of strings"},
		{name: "too many", input: tooMany, wantErr: fmt.Sprintf("run_id accepts at most %d items, got %d", MaxItems, MaxItems+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDs(tt.input, "run_id")
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("ParseIDs() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIDs() unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

type digest struct {
	Total int `json:"total"`
}

func TestProcess(t *testing.T) {
	load := func(_ context.Context, id string) (*digest, error) {
		if id == "run-2" {
			return nil, errors.New("run not found")
		}
		return &digest{Total: len(id)}, nil
	}

	s := Process(context.Background(), []string{"run-1", "run-2", "run-33"}, load)

	if s.Total != 3 || s.Successful != 2 || s.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1", s.Total, s.Successful, s.Failed)
	}
	if r := s.Results[1]; r.ID != "run-2" || r.Status != StatusError || r.Error != "run not found" || r.Data != nil {
		t.Errorf("results[1] = %+v", r)
	}
	if r := s.Results[2]; r.Status != StatusSuccess || r.Data.Total != 6 {
		t.Errorf("results[2] = %+v", r)
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := Process(ctx, []string{"a", "b", "c"}, func(_ context.Context, id string) (string, error) {
		calls++
		cancel()
		return id, nil
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Successful != 1 || s.Failed != 2 {
		t.Errorf("counts = %d ok, %d failed", s.Successful, s.Failed)
	}
	if s.Results[2].Error != context.Canceled.Error() {
		t.Errorf("results[2].Error = %q", s.Results[2].Error)
	}
}

func TestSummary_JSON(t *testing.T) {
	s := Process(context.Background(), []string{"run-1", "gone"}, func(_ context.Context, id string) (*digest, error) {
		if id == "gone" {
			return nil, errors.New("run not found")
		}
		return &digest{Total: 2}, nil
	})

	out, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var decoded struct {
		Total   int `json:"total"`
		Results []struct {
			ID     string  `json:"id"`
			Status string  `json:"status"`
			Data   *digest `json:"data"`
			Error  string  `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Total != 2 || len(decoded.Results) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if d := decoded.Results[0].Data; d == nil || d.Total != 2 {
		t.Errorf("data = %+v", d)
	}
	if decoded.Results[1].Data != nil || decoded.Results[1].Error != "run not found" {
		t.Errorf("failed item = %+v", decoded.Results[1])
	}
}
