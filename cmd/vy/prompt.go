package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/vibeyard/internal/prompt"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show and edit stored prompt templates",
	}

	cmd.AddCommand(newPromptListCmd())
	cmd.AddCommand(newPromptShowCmd())
	cmd.AddCommand(newPromptSetCmd())
	return cmd
}

func newPromptListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored prompt names",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			ps, err := prompt.List(gormDB)
			if err != nil {
				return err
			}
			for _, p := range ps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, updated %s)\n", p.Name, len(p.Content), p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	return cmd
}

func newPromptShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a prompt template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			content, err := prompt.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	return cmd
}

func newPromptSetCmd() *cobra.Command {
	var (
		configPath string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Replace a prompt template",
		Long:  "Replaces a prompt template with the contents of --file, or stdin when --file is omitted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			if len(data) == 0 {
				return fmt.Errorf("template for %s is empty", args[0])
			}

			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			if err := prompt.Set(gormDB, args[0], string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prompt %s updated (%d bytes)\n", args[0], len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the template from this file")
	return cmd
}
