package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coco-ai/tool-service/internal/config"
	"github.com/coco-ai/tool-service/pkg/tool"
	"github.com/coco-ai/tool-service/pkg/tools"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the service would serve",
	Long: `Build the tool registry from the current configuration and print
each tool with its parameters, without starting the server.`,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := tool.NewRegistry()
	if err := tools.RegisterAll(registry, tools.Options{
		SerperAPIKey: cfg.Tools.SerperAPIKey,
	}); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	descriptors := registry.List()

	if toolsJSON {
		out := make([]map[string]interface{}, 0, len(descriptors))
		for _, d := range descriptors {
			out = append(out, map[string]interface{}{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Schema.Doc(),
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	for _, d := range descriptors {
		cmd.Printf("%s\n  %s\n", d.Name, d.Description)
		for _, p := range d.Schema {
			required := ""
			if p.Required {
				required = " (required)"
			}
			cmd.Printf("    %-16s %s%s\n", p.Name, p.Type, required)
		}
	}
	return nil
}
