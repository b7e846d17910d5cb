/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/emerginginv/trace-aid-sub002/internal/api"
	"github.com/emerginginv/trace-aid-sub002/internal/config"
	"github.com/emerginginv/trace-aid-sub002/internal/container"
	"github.com/emerginginv/trace-aid-sub002/internal/migration"
	"github.com/emerginginv/trace-aid-sub002/internal/utils"
	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
// 独立的类别转换同步工具:不依赖管道,批量导入后可直接运行
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize category transitions for an organization",
	Long: `Rebuild category transition records from the status history.

Fill mode (default) only inserts transitions that are missing and never
deletes existing records. Override mode deletes all transitions for the
affected cases and recreates them from history; it is destructive and
requires --confirm when committing.

Use --dry-run to preview the counts without writing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		orgID, _ := cmd.Flags().GetString("org")
		mode, _ := cmd.Flags().GetString("mode")
		confirm, _ := cmd.Flags().GetBool("confirm")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		operator, _ := cmd.Flags().GetString("operator")

		if err := utils.ValidateOrganizationID(orgID); err != nil {
			return fmt.Errorf("invalid organization ID: %w", err)
		}
		if operator != "" {
			if err := utils.ValidateOperator(operator); err != nil {
				return fmt.Errorf("invalid operator: %w", err)
			}
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		ctx := context.Background()
		if operator != "" {
			ctx = context.WithValue(ctx, "user_id", operator) //nolint:staticcheck
		}

		result, err := ctr.MigrationService().SyncTransitions(ctx, orgID, migration.SyncMode(mode), confirm, dryRun)
		if err != nil {
			return fmt.Errorf("failed to sync transitions: %w", err)
		}

		label := "commit"
		if dryRun {
			label = "dry-run"
		}
		log.Printf("Transition sync (%s, %s mode) finished", label, mode)
		log.Printf("  cases processed:     %d", result.CasesProcessed)
		log.Printf("  transitions created: %d", result.TransitionsCreated)
		log.Printf("  transitions deleted: %d", result.TransitionsDeleted)
		log.Printf("  cases skipped:       %d", result.Skipped)
		log.Printf("  errors:              %d", result.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.trace-aid)")
	syncCmd.Flags().String("org", "", "Organization ID (required)")
	syncCmd.Flags().String("mode", "fill", "Sync mode: fill or override")
	syncCmd.Flags().Bool("confirm", false, "Acknowledge destructive override mode")
	syncCmd.Flags().Bool("dry-run", false, "Preview counts without writing")
	syncCmd.Flags().String("operator", "", "Operator identity recorded in the migration log")
	_ = syncCmd.MarkFlagRequired("org")
}
