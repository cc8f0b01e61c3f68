package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"sopdesk/api/internal/config"
	"sopdesk/api/internal/mcptools"
	"sopdesk/api/internal/storage"
)

var snapshotMessage string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed or migrate the store to the current content version",
	Long:  "Runs the version check. When the stored marker differs, the admin password, articles and teams are reset to the defaults after the old contents are archived.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		kb, err := openKnowledgeBase(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer kb.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "store is at", storage.CurrentVersion)
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <new-password>",
	Short: "Set the admin password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		kb, err := openKnowledgeBase(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer kb.Close()

		if err := kb.kb.SetPassword(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "admin password updated")
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Commit the current store contents to the archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		kb, err := openKnowledgeBase(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer kb.Close()

		entries, err := kb.kb.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("read store: %w", err)
		}
		commit, changed, err := kb.archive.Snapshot(entries, snapshotMessage)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "no changes since", commit.Hash)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "archived", commit.Hash)
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge-base tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := newLogger(cfg)
		kb, err := openKnowledgeBase(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer kb.Close()

		s := mcptools.NewServer(version, kb.kb, newAssistant(cmd.Context(), cfg, kb.kb, log))
		return server.ServeStdio(s)
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotMessage, "message", "m", "manual snapshot", "commit message")
}
