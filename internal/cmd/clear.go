package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/infrastructure/db"
)

var clearCmd = &cobra.Command{
	Use:   "clear-tasks",
	Short: "Delete every task record from the database",
	RunE:  runClear,
}

var clearYes bool

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	repo := db.NewTaskRepository(database, log.Named("db"))
	return clearTasks(cmd.Context(), repo, clearYes, cmd.InOrStdin(), cmd.OutOrStdout())
}

func clearTasks(ctx context.Context, repo ports.TaskRepository, yes bool, in io.Reader, out io.Writer) error {
	if !yes {
		fmt.Fprint(out, "Delete all tasks? [y/N] ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Nothing deleted.")
			return nil
		}
	}

	n, err := repo.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d task(s).\n", n)
	return nil
}
