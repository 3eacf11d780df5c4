package common

import "github.com/teemow/inboxtriage/internal/google"

// GetAccountFromArgs returns the explicit "account" argument, or the
// default account when it is missing, empty or not a string.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return google.DefaultAccount
}

// StringArg returns a string argument or def.
func StringArg(args map[string]interface{}, name, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}

// IntArg returns a numeric argument or def. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// BoolArg returns a boolean argument or def.
func BoolArg(args map[string]interface{}, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}
