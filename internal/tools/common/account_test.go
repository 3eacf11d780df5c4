package common

import "testing"

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "nil args", args: nil, want: "default"},
		{name: "missing", args: map[string]interface{}{"email_type": "unread"}, want: "default"},
		{name: "empty", args: map[string]interface{}{"account": ""}, want: "default"},
		{name: "not a string", args: map[string]interface{}{"account": 2.0}, want: "default"},
		{name: "named", args: map[string]interface{}{"account": "work", "max_emails": 5.0}, want: "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetAccountFromArgs(tt.args); got != tt.want {
				t.Errorf("GetAccountFromArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Tool arguments arrive as decoded JSON, so numbers are float64.
func TestArgHelpers(t *testing.T) {
	args := map[string]interface{}{
		"title":      "Budget review",
		"tone":       "",
		"duration":   float64(45),
		"max_emails": 3,
		"dry_run":    true,
		"days":       "7",
	}

	t.Run("StringArg", func(t *testing.T) {
		cases := map[string]string{"title": "Budget review", "tone": "casual", "missing": "casual"}
		for name, want := range cases {
			if got := StringArg(args, name, "casual"); got != want {
				t.Errorf("StringArg(%s) = %q, want %q", name, got, want)
			}
		}
	})

	t.Run("IntArg", func(t *testing.T) {
		cases := map[string]int{"duration": 45, "max_emails": 3, "days": 14, "missing": 14}
		for name, want := range cases {
			if got := IntArg(args, name, 14); got != want {
				t.Errorf("IntArg(%s) = %d, want %d", name, got, want)
			}
		}
	})

	t.Run("BoolArg", func(t *testing.T) {
		if !BoolArg(args, "dry_run", false) {
			t.Error("BoolArg(dry_run) = false, want true")
		}
		if BoolArg(args, "title", false) {
			t.Error("a non-bool value must fall back to the default")
		}
		if !BoolArg(args, "missing", true) {
			t.Error("a missing value must fall back to the default")
		}
	})
}
