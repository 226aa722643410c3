package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caretforge/caretforge/internal/config"
	"github.com/caretforge/caretforge/internal/doctor"
)

func buildChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task...]",
		Short: "Run a one-shot task and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func buildModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect available models",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the models of the selected provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelList(cmd.Context())
		},
	})
	return cmd
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var withSecrets bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Init(withSecrets)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&withSecrets, "with-secrets", false, "Bake current credentials into the file instead of ${VAR} references")

	var showJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			redacted, err := cfg.Redacted()
			if err != nil {
				return err
			}
			if showJSON {
				return json.NewEncoder(os.Stdout).Encode(redacted)
			}
			pretty, err := json.MarshalIndent(redacted, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(pretty))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print as a single JSON line")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return err
			}
			fmt.Println(string(schema))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, schemaCmd)
	return cmd
}

func buildDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and environment problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, ok := doctor.Run(cmd.Context(), doctor.WorkDir())
			for _, c := range checks {
				mark := "ok"
				if !c.OK {
					mark = "FAIL"
				}
				fmt.Printf("%-16s %-4s %s\n", c.Name, mark, c.Detail)
			}
			if !ok {
				return fmt.Errorf("%d check(s) failed", countFailed(checks))
			}
			return nil
		},
	}
}

func countFailed(checks []doctor.Check) int {
	n := 0
	for _, c := range checks {
		if !c.OK {
			n++
		}
	}
	return n
}
