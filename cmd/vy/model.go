package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/models"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage model endpoint configurations",
	}

	cmd.AddCommand(newModelListCmd())
	cmd.AddCommand(newModelAddCmd())
	cmd.AddCommand(newModelUpdateCmd())
	cmd.AddCommand(newModelActivateCmd())
	cmd.AddCommand(newModelRemoveCmd())
	return cmd
}

func newModelListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List model configurations and their active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			cfgs, err := aimodel.List(gormDB)
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), cfgs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	return cmd
}

func printModels(out io.Writer, cfgs []models.AIModelConfig) {
	if len(cfgs) == 0 {
		fmt.Fprintln(out, "No model configurations.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODEL\tENDPOINT\tTASKS")
	for _, m := range cfgs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.ModelName, m.EndpointURL, activeTasks(m))
	}
	w.Flush()
}

func activeTasks(m models.AIModelConfig) string {
	var tasks []string
	if m.IsCodeGeneration {
		tasks = append(tasks, string(aimodel.TaskCode))
	}
	if m.IsPreviewGeneration {
		tasks = append(tasks, string(aimodel.TaskPreview))
	}
	if m.IsReportGeneration {
		tasks = append(tasks, string(aimodel.TaskReport))
	}
	if len(tasks) == 0 {
		return "-"
	}
	return strings.Join(tasks, ",")
}

func newModelAddCmd() *cobra.Command {
	var (
		configPath string
		opts       aimodel.CreateOpts
		tasks      []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a model configuration",
		Long: `Adds a model configuration. When --api-key is omitted and stdin is a
terminal, the key is read without echo. --task activates the new model for
that task, replacing the current holder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]aimodel.Task, 0, len(tasks))
			for _, s := range tasks {
				t, err := aimodel.ParseTask(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, t)
			}

			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}

			if opts.APIKey == "" && stdinIsTerminal() {
				fmt.Fprint(cmd.OutOrStdout(), "API key (empty for none): ")
				key, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("read api key: %w", err)
				}
				opts.APIKey = strings.TrimSpace(string(key))
			}

			m, err := aimodel.Create(gormDB, opts)
			if err != nil {
				return err
			}
			for _, t := range parsed {
				if err := aimodel.Activate(gormDB, m.ID, t, true); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added model %q (id %d)\n", m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "unique configuration name (required)")
	cmd.Flags().StringVar(&opts.ModelName, "model", "", "model identifier sent to the endpoint (required)")
	cmd.Flags().StringVar(&opts.EndpointURL, "endpoint", "", "chat completions endpoint URL (required)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "bearer token for the endpoint")
	cmd.Flags().StringSliceVar(&tasks, "task", nil, "activate for task: code_generation, preview_generation, report_generation")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("endpoint")
	return cmd
}

func newModelUpdateCmd() *cobra.Command {
	var (
		configPath                       string
		rename, modelName, endpoint, key string
		promptKey                        bool
	)

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Edit a model configuration",
		Long: `Edits a model configuration. Only the flags given are changed; task
activation is kept. --prompt-key reads a new API key without echo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts aimodel.UpdateOpts
			flags := cmd.Flags()
			if flags.Changed("name") {
				opts.Name = &rename
			}
			if flags.Changed("model") {
				opts.ModelName = &modelName
			}
			if flags.Changed("endpoint") {
				opts.EndpointURL = &endpoint
			}
			if flags.Changed("api-key") {
				opts.APIKey = &key
			}
			if promptKey {
				if !stdinIsTerminal() {
					return fmt.Errorf("--prompt-key needs an interactive terminal")
				}
				fmt.Fprint(cmd.OutOrStdout(), "New API key (empty for none): ")
				typed, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("read api key: %w", err)
				}
				key = strings.TrimSpace(string(typed))
				opts.APIKey = &key
			}
			if opts == (aimodel.UpdateOpts{}) {
				return fmt.Errorf("nothing to update: pass --name, --model, --endpoint, --api-key or --prompt-key")
			}

			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			m, err := aimodel.GetByName(gormDB, args[0])
			if err != nil {
				return err
			}
			m, err = aimodel.Update(gormDB, m.ID, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated model %q (id %d)\n", m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().StringVar(&rename, "name", "", "new configuration name")
	cmd.Flags().StringVar(&modelName, "model", "", "model identifier sent to the endpoint")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "chat completions endpoint URL")
	cmd.Flags().StringVar(&key, "api-key", "", "bearer token for the endpoint; empty clears it")
	cmd.Flags().BoolVar(&promptKey, "prompt-key", false, "read a new API key without echo")
	return cmd
}

func newModelActivateCmd() *cobra.Command {
	var (
		configPath string
		disable    bool
	)

	cmd := &cobra.Command{
		Use:   "activate <name> <task>",
		Short: "Make a model the active one for a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := aimodel.ParseTask(args[1])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			m, err := aimodel.GetByName(gormDB, args[0])
			if err != nil {
				return err
			}
			if err := aimodel.Activate(gormDB, m.ID, task, !disable); err != nil {
				return err
			}
			verb := "activated"
			if disable {
				verb = "deactivated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %q %s for %s\n", m.Name, verb, task)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().BoolVar(&disable, "disable", false, "clear the task flag instead of setting it")
	return cmd
}

func newModelRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a model configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			m, err := aimodel.GetByName(gormDB, args[0])
			if err != nil {
				return err
			}
			if err := aimodel.Delete(gormDB, m.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed model %q\n", m.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	return cmd
}
