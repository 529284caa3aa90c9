// cmd/taskboard/commands.go
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/view"
)

func listCmd(a *app) *cobra.Command {
	var (
		search string
		pages  int
	)
	cmd := &cobra.Command{
		Use:   "list [column]",
		Short: "Show the board, or one column of it",
		Long: `Show the board, or one column of it.

Examples:
  taskboard list
  taskboard list backlog --pages 2
  taskboard list --search design`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := models.Columns()
			if len(args) == 1 {
				col, err := models.ParseColumn(args[0])
				if err != nil {
					return err
				}
				cols = []models.Column{col}
			}
			out := cmd.OutOrStdout()
			for i, col := range cols {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printColumn(out, col, a.board.Column(col, search, pages))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show tasks whose title or description contains this text")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to show per column")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	var (
		description string
		column      string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := models.ParseColumn(column)
			if err != nil {
				return err
			}
			task, err := a.board.Create(cmd.Context(), models.Draft{
				Title:       strings.Join(args, " "),
				Description: description,
				Column:      col,
			})
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&column, "column", "c", string(models.ColumnBacklog), "column to add the task to")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch models.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change: pass --title or --description")
			}
			task, err := a.board.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <column>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			col, err := models.ParseColumn(args[1])
			if err != nil {
				return err
			}
			task, err := a.board.MoveColumn(cmd.Context(), id, col)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.board.Delete(cmd.Context(), id)
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func printColumn(w io.Writer, col models.Column, page view.Page) {
	fmt.Fprintf(w, "%s (%d)\n", col.Title(), page.Matched)
	if len(page.Tasks) == 0 {
		fmt.Fprintln(w, "  No tasks")
		return
	}
	for _, t := range page.Tasks {
		fmt.Fprintf(w, "  #%-4d %s\n", t.ID, t.Title)
		if t.Description != "" {
			fmt.Fprintf(w, "        %s\n", t.Description)
		}
	}
	if page.HasMore {
		fmt.Fprintf(w, "  ... %d more (use --pages)\n", page.Remaining)
	}
}

func printTask(w io.Writer, t models.Task) {
	fmt.Fprintf(w, "#%d %s [%s]\n", t.ID, t.Title, t.Column.Title())
}
