// Package main is the entry point for the remedia binary.
// It provides a CLI for the incident ledger, the approval workflow, and
// the execution orchestrator, operating directly on the snapshot stores.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quorumsec/remedia/pkg/adapter"
	"github.com/quorumsec/remedia/pkg/config"
	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/ledger"
	"github.com/quorumsec/remedia/pkg/logging"
	"github.com/quorumsec/remedia/pkg/orchestrator"
	"github.com/quorumsec/remedia/pkg/policy"
	"github.com/quorumsec/remedia/pkg/storage"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliContext bundles the ledgers the subcommands operate on.
type cliContext struct {
	cfg        *config.Config
	logger     *slog.Logger
	incidents  *ledger.IncidentLedger
	approvals  *ledger.ApprovalLedger
	executions *ledger.ExecutionLog
	close      func()
}

func openContext(cmd *cobra.Command) (*cliContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger := logging.NewLogger(logging.Config{Level: cfg.Logging.Level, Text: true})

	incidentStore, err := storage.NewFileStore(filepath.Join(cfg.Storage.Dir, "incidents.json"))
	if err != nil {
		return nil, err
	}
	approvalStore, err := storage.NewFileStore(filepath.Join(cfg.Storage.Dir, "approvals.json"))
	if err != nil {
		_ = incidentStore.Close()
		return nil, err
	}
	executionStore, err := storage.NewFileStore(filepath.Join(cfg.Storage.Dir, "executions.json"))
	if err != nil {
		_ = incidentStore.Close()
		_ = approvalStore.Close()
		return nil, err
	}

	return &cliContext{
		cfg:        cfg,
		logger:     logger,
		incidents:  ledger.NewIncidentLedger(incidentStore, logger),
		approvals:  ledger.NewApprovalLedger(approvalStore, logger),
		executions: ledger.NewExecutionLog(executionStore, logger),
		close: func() {
			_ = incidentStore.Close()
			_ = approvalStore.Close()
			_ = executionStore.Close()
		},
	}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "remedia",
		Short: "Approval-gated identity remediation",
		Long: `remedia manages identity-compromise incidents through an explicit
approval workflow: open an incident on an assumption of compromise,
review the recommended containment actions, record approvals, and run
the orchestrator to dispatch approved actions to the governance engine.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newIncidentCmd(),
		newApproveCmd(),
		newRejectCmd(),
		newApprovalsCmd(),
		newExecutionsCmd(),
		newRecommendCmd(),
		newRunCmd(),
	)

	return rootCmd
}

func newIncidentCmd() *cobra.Command {
	incidentCmd := &cobra.Command{
		Use:   "incident",
		Short: "Manage incidents",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new incident on an assumption of compromise",
		RunE: func(cmd *cobra.Command, args []string) error {
			identityRef, _ := cmd.Flags().GetString("identity-ref")
			assumption, _ := cmd.Flags().GetString("assumption")
			source, _ := cmd.Flags().GetString("source")

			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			incident, err := cli.incidents.Create(cmd.Context(), identityRef, assumption, domain.IncidentSource(source))
			if err != nil {
				return err
			}
			return printJSON(cmd, incident)
		},
	}
	createCmd.Flags().String("identity-ref", "", "Identity the incident is about (UPN or object id)")
	createCmd.Flags().String("assumption", "", "Free-text statement of the assumed compromise")
	createCmd.Flags().String("source", "manual", "Reporting source (manual, api, soc_tool)")
	_ = createCmd.MarkFlagRequired("identity-ref")
	_ = createCmd.MarkFlagRequired("assumption")

	getCmd := &cobra.Command{
		Use:   "get <incident-id>",
		Short: "Show one incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			incident, err := cli.incidents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, incident)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			incidents, err := cli.incidents.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, incidents)
		},
	}

	incidentCmd.AddCommand(createCmd, getCmd, listCmd)
	return incidentCmd
}

func newApproveCmd() *cobra.Command {
	return newDecisionCmd("approve", "Record an approval for an action", true)
}

func newRejectCmd() *cobra.Command {
	return newDecisionCmd("reject", "Record a rejection for an action", false)
}

func newDecisionCmd(use, short string, approve bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <incident-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionID, _ := cmd.Flags().GetString("action")
			approver, _ := cmd.Flags().GetString("approver")

			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			record := cli.approvals.RecordRejection
			if approve {
				record = cli.approvals.RecordApproval
			}
			entry, err := record(cmd.Context(), args[0], actionID, approver)
			if err != nil {
				return err
			}
			return printJSON(cmd, entry)
		},
	}
	cmd.Flags().String("action", "", "Action id (revoke_sessions, disable_identity, remove_role)")
	cmd.Flags().String("approver", "", "Person recording the decision")
	_ = cmd.MarkFlagRequired("action")
	_ = cmd.MarkFlagRequired("approver")
	return cmd
}

func newApprovalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approvals <incident-id>",
		Short: "List the approval ledger for an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			entries, err := cli.approvals.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
}

func newExecutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "executions <incident-id>",
		Short: "List the execution records for an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			records, err := cli.executions.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show the recommended containment actions for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identityRef, _ := cmd.Flags().GetString("identity-ref")

			recommendations, err := policy.Decide(identityRef, []any{}, []any{})
			if err != nil {
				return err
			}
			return printJSON(cmd, recommendations)
		},
	}
	cmd.Flags().String("identity-ref", "", "Identity to recommend actions for")
	_ = cmd.MarkFlagRequired("identity-ref")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one orchestrator pass over all incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := openContext(cmd)
			if err != nil {
				return err
			}
			defer cli.close()

			governance := adapter.NewMidPointAdapter(adapter.MidPointConfig{
				BaseURL:  cli.cfg.Governance.BaseURL,
				Username: cli.cfg.Governance.Username,
				Password: cli.cfg.Governance.Password,
				Timeout:  cli.cfg.Governance.Timeout(),
				Retry: adapter.RetryConfig{
					MaxAttempts: cli.cfg.Governance.MaxAttempts,
				},
			}, cli.logger)

			runner := orchestrator.New(cli.incidents, cli.approvals, cli.executions, governance, cli.logger)
			results, err := runner.RunPass(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		},
	}
}
