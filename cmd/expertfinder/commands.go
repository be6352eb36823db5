package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/expertfinder/internal/api"
	"github.com/kalambet/expertfinder/internal/config"
	"github.com/kalambet/expertfinder/internal/directory"
	"github.com/kalambet/expertfinder/internal/workspace"
)

// spaceLister is the part of the workspace client the spaces command uses.
type spaceLister interface {
	ListSpaces(ctx context.Context) ([]workspace.Space, error)
}

// directoryFromConfig loads configuration and builds a directory client.
func directoryFromConfig() (*directory.Client, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	if err := cfg.RequireDirectory(); err != nil {
		return nil, cfg, err
	}
	return directory.New(cfg.Directory), cfg, nil
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Search the directory for experts",
	Long: `Search the profile directory the same way the bot does.

Examples:
  expertfinder search kafka streams
  expertfinder search --tag golang`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetBool("tag")

		dir, _, err := directoryFromConfig()
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), cmd.OutOrStdout(), dir, strings.Join(args, " "), tag)
	},
}

func init() {
	searchCmd.Flags().Bool("tag", false, "match profile tags instead of full text")
}

func runSearch(ctx context.Context, w io.Writer, dir api.MCPDirectory, query string, tag bool) error {
	var (
		res directory.SearchResult
		err error
	)
	if tag {
		res, err = dir.SearchByTag(ctx, query)
	} else {
		res, err = dir.SearchFullText(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("searching %q: %w", query, err)
	}

	if res.TotalCount == 0 || len(res.Profiles) == 0 {
		printWarning("No experts found for %q", query)
		return nil
	}
	for _, p := range res.Profiles {
		writeProfileLine(w, p)
	}
	if res.TotalCount > len(res.Profiles) {
		printStatus("Results", "showing %d of %d", len(res.Profiles), res.TotalCount)
	} else {
		printStatus("Results", "%d", res.TotalCount)
	}
	return nil
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <userid>",
	Short: "Show one directory profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, cfg, err := directoryFromConfig()
		if err != nil {
			return err
		}
		return runShow(cmd.Context(), cmd.OutOrStdout(), dir, cfg.Directory.Host, args[0])
	},
}

func runShow(ctx context.Context, w io.Writer, dir api.MCPDirectory, host, userID string) error {
	p, err := dir.SearchByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", userID, err)
	}
	writeProfile(w, p, host)
	return nil
}

// --- spaces ---

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List the spaces the app has been added to",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireWorkspace(); err != nil {
			return err
		}
		return runSpaces(cmd.Context(), cmd.OutOrStdout(), workspace.New(cfg.Workspace))
	},
}

func runSpaces(ctx context.Context, w io.Writer, gw spaceLister) error {
	spaces, err := gw.ListSpaces(ctx)
	if err != nil {
		return fmt.Errorf("listing spaces: %w", err)
	}
	if len(spaces) == 0 {
		printWarning("The app is not a member of any space")
		return nil
	}
	for _, s := range spaces {
		fmt.Fprintf(w, "%s  %s\n", colorize(colorDim, s.ID), s.Title)
	}
	return nil
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve expert search tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, cfg, err := directoryFromConfig()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		s := api.NewMCPServer(api.MCPDeps{
			Directory:     dir,
			DirectoryHost: cfg.Directory.Host,
			Version:       version,
		})
		printStep("Serving MCP tools on stdio")
		return server.ServeStdio(s)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
