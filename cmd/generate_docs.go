package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/google"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	markdown, err := toolsDocumentation()
	if err != nil {
		return err
	}

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// toolsDocumentation registers the tools against a context without
// credentials, once read-only and once with writes enabled, and renders
// their definitions. Tools present only in the second set need --yolo.
func toolsDocumentation() (string, error) {
	ctx := context.Background()
	serverContext, err := server.NewServerContext(ctx, server.Options{
		Config:        &config.Config{GoogleAccount: google.DefaultAccount},
		TokenProvider: google.StaticTokenProvider{},
		LLM:           llm.NewOllamaProvider("http://localhost:11434", "docs", nil),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	readOnly, err := registeredTools(serverContext, true)
	if err != nil {
		return "", err
	}
	all, err := registeredTools(serverContext, false)
	if err != nil {
		return "", err
	}
	return generateToolsMarkdown(all, readOnly), nil
}

func registeredTools(sc *server.ServerContext, readOnly bool) (map[string]mcp.Tool, error) {
	mcpSrv := mcpserver.NewMCPServer("inboxtriage", version, mcpserver.WithToolCapabilities(true))
	if err := triage_tools.RegisterTriageTools(mcpSrv, sc, readOnly); err != nil {
		return nil, fmt.Errorf("failed to register triage tools: %w", err)
	}
	tools := make(map[string]mcp.Tool)
	for name, st := range mcpSrv.ListTools() {
		tools[name] = st.Tool
	}
	return tools, nil
}

func generateToolsMarkdown(all, readOnly map[string]mcp.Tool) string {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools available when running `inboxtriage serve`. Generated from the tool definitions.\n\n")
	sb.WriteString("By default the server is read-only: `triage_run` only classifies, and tools that create\n")
	sb.WriteString("calendar entries are not offered. Start the server with `--yolo` to enable them.\n")
	sb.WriteString("Reply drafts are saved, never sent.\n\n")
	sb.WriteString("Tools that read the mailbox or calendar accept an optional `account` argument naming the\n")
	sb.WriteString("Google account to use (default: the configured account).\n\n")

	sb.WriteString("## Triage Tools\n\n")
	for _, name := range names {
		_, safe := readOnly[name]
		sb.WriteString(generateToolMarkdown(all[name], safe))
		sb.WriteString("\n")
	}
	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool, readOnly bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}
	if readOnly {
		sb.WriteString("Available in read-only mode.\n\n")
	} else {
		sb.WriteString("Requires `--yolo`.\n\n")
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	props := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		props = append(props, name)
	}
	sort.Strings(props)

	sb.WriteString("**Arguments:**\n")
	for _, name := range props {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		required := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "required"
		}
		fmt.Fprintf(&sb, "- `%s` (%s, %s)", name, required, propertyType(prop))
		if desc, ok := prop["description"].(string); ok && desc != "" {
			fmt.Fprintf(&sb, ": %s", desc)
		}
		if values := enumValues(prop); len(values) > 0 {
			fmt.Fprintf(&sb, ". One of: %s", strings.Join(values, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func enumValues(prop map[string]any) []string {
	var values []string
	switch e := prop["enum"].(type) {
	case []string:
		for _, v := range e {
			values = append(values, "`"+v+"`")
		}
	case []any:
		for _, v := range e {
			values = append(values, fmt.Sprintf("`%v`", v))
		}
	}
	return values
}
