package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchkit/dirwatch"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write or diff a tree snapshot file",
	}
	cmd.AddCommand(newSnapshotWriteCmd())
	cmd.AddCommand(newSnapshotDiffCmd())
	return cmd
}

func newSnapshotWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <dir> <file>",
		Short: "Walk a directory and write its tree snapshot to file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(buildLogger())

			ignore, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := dirwatch.Options{Backend: flagBackend, Ignore: ignore}
			return dirwatch.WriteSnapshot(cmd.Context(), args[0], f, opts)
		},
	}
}

func newSnapshotDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <dir> <file>",
		Short: "Diff a previously written snapshot against current disk state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(buildLogger())

			ignore, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := dirwatch.Options{Backend: flagBackend, Ignore: ignore}
			events, err := dirwatch.GetEventsSince(cmd.Context(), args[0], f, opts)
			if err != nil {
				return err
			}
			printEvents(events)
			return nil
		},
	}
}
