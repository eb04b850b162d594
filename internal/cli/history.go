package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/history"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past resolutions",
	}
	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyDeleteCommand())
	cmd.AddCommand(c.historyPruneCommand())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(history.Store) error) error {
	store, err := c.cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "history is disabled (store.backend = none)")
	}
	defer store.Close()
	return fn(store)
}

func (c *CLI) historyListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent resolutions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s history.Store) error {
				records, err := s.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					printInfo("No resolutions recorded yet")
					return nil
				}
				fmt.Println(historyTable(records))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records")
	return cmd
}

func historyTable(records []*history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("Jan 2 15:04"),
			strings.Join(r.Roots, ", "),
			fmt.Sprint(r.Nodes),
			fmt.Sprint(len(r.Conflicts)),
			fmt.Sprint(len(r.Failures)),
		})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "When", "Roots", "Nodes", "Conflicts", "Unresolved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			case col == 5 && rows[row][5] != "0":
				return StyleError
			case col == 4 && rows[row][4] != "0":
				return StyleWarning
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// findRecord accepts a full ID or a unique prefix of one.
func findRecord(ctx context.Context, s history.Store, id string) (*history.Record, error) {
	if r, err := s.Get(ctx, id); err == nil {
		return r, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *history.Record
	for _, r := range records {
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, errors.New(errors.ErrCodeInvalidInput, "id prefix %q is ambiguous", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no resolution %q", id)
	}
	return match, nil
}

func isNotFound(err error) bool {
	return stderrors.Is(err, history.ErrNotFound) || errors.Is(err, errors.ErrCodeInvalidPath)
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withStore(ctx, func(s history.Store) error {
				r, err := findRecord(ctx, s, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(r)
				}
				printRecord(r)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func printRecord(r *history.Record) {
	fmt.Println(StyleTitle.Render(strings.Join(r.Roots, ", ")))
	printKeyValue("id", r.ID)
	printKeyValue("when", r.CreatedAt.Local().Format(time.RFC1123))
	printKeyValue("took", r.Duration.Round(time.Millisecond).String())
	printKeyValue("nodes", fmt.Sprint(r.Nodes))
	if r.SessionID != "" {
		printKeyValue("session", r.SessionID)
	}
	for _, repo := range r.Repositories {
		printKeyValue("repository", repo)
	}
	printNewline()
	for _, a := range r.Artifacts {
		printDetail("%s", a)
	}
	if len(r.Conflicts) > 0 {
		printNewline()
		printConflicts(r.Conflicts)
	}
	for _, f := range r.Failures {
		printError("%s %s", f.Location, StyleDim.Render(f.Message))
	}
}

func (c *CLI) historyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withStore(ctx, func(s history.Store) error {
				r, err := findRecord(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.Delete(ctx, r.ID); err != nil {
					return err
				}
				printSuccess("Deleted %s", shortID(r.ID))
				return nil
			})
		},
	}
}

func (c *CLI) historyPruneCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete resolutions older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withStore(ctx, func(s history.Store) error {
				n, err := s.Prune(ctx, olderThan)
				if err != nil {
					return err
				}
				printSuccess("Pruned %d resolutions", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age to delete")
	return cmd
}
