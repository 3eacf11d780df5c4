package cmd

import (
	"slices"
	"testing"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: nil},
		{input: "https://app.example.com", want: []string{"https://app.example.com"}},
		{input: "https://a.example.com, http://localhost:3000", want: []string{"https://a.example.com", "http://localhost:3000"}},
		{input: ",https://a.example.com,,", want: []string{"https://a.example.com"}},
		{input: " ,  , ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseCommaSeparatedList(tt.input); !slices.Equal(got, tt.want) || (got == nil) != (tt.want == nil) {
				t.Errorf("parseCommaSeparatedList(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestServeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  serveConfig
		wantErr bool
	}{
		{name: "stdio", config: serveConfig{Transport: "stdio"}},
		{name: "stdio without api", config: serveConfig{Transport: "stdio", DisableAPI: true}},
		{name: "streamable http", config: serveConfig{Transport: "streamable-http"}},
		{name: "streamable http without api", config: serveConfig{Transport: "streamable-http", DisableAPI: true}, wantErr: true},
		{name: "unknown transport", config: serveConfig{Transport: "sse"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMetricsEnvVars(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("METRICS_ADDR", ":9191")

	cmd := newServeCmd()
	config := MetricsConfig{Enabled: true, Addr: ":9090"}
	loadMetricsEnvVars(cmd, &config)

	if config.Enabled {
		t.Error("Enabled = true, want false from METRICS_ENABLED")
	}
	if config.Addr != ":9191" {
		t.Errorf("Addr = %q, want :9191", config.Addr)
	}

	// Explicit flags win over the environment.
	if err := cmd.Flags().Set("metrics-addr", ":9292"); err != nil {
		t.Fatal(err)
	}
	config = MetricsConfig{Enabled: true, Addr: ":9292"}
	loadMetricsEnvVars(cmd, &config)
	if config.Addr != ":9292" {
		t.Errorf("Addr = %q, want :9292 from flag", config.Addr)
	}
}
