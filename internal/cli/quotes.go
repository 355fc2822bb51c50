package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/quotes"
)

// quotesCommand creates the quote management command.
func (c *CLI) quotesCommand() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Manage group quote collections",
		Long: `Manage the quote collections the bot keeps per group.

Every subcommand except "groups" needs --group, the QQ group number.`,
	}
	cmd.PersistentFlags().StringVarP(&group, "group", "g", "", "QQ group number")

	cmd.AddCommand(c.quotesGroupsCommand())
	cmd.AddCommand(c.quotesAddCommand(&group))
	cmd.AddCommand(c.quotesAliasCommand(&group))
	cmd.AddCommand(c.quotesListCommand(&group))
	cmd.AddCommand(c.quotesDeleteCommand(&group))
	cmd.AddCommand(c.quotesReindexCommand(&group))
	cmd.AddCommand(c.quotesBrowseCommand(&group))

	return cmd
}

// withBook opens the configured store and runs fn with a quote book on it.
func (c *CLI) withBook(ctx context.Context, fn func(*quotes.Book) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(quotes.New(st, quotesDir(cfg)))
}

func requireGroup(group *string) error {
	if *group == "" {
		return errors.New(errors.ErrCodeInvalidGroup, "--group is required")
	}
	return nil
}

func (c *CLI) quotesGroupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List groups that have quote records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBook(cmd.Context(), func(b *quotes.Book) error {
				groups, err := b.Groups(cmd.Context())
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					printInfo("No quote records yet")
					return nil
				}
				for _, g := range groups {
					fmt.Fprintln(stdout, g)
				}
				return nil
			})
		},
	}
}

func (c *CLI) quotesAddCommand(group *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [image...]",
		Short: "Register a member and optionally store quote images",
		Example: `  yiyin quotes add -g 123456 小明
  yiyin quotes add -g 123456 小明 shot1.png shot2.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			name, files := args[0], args[1:]
			return c.withBook(ctx, func(b *quotes.Book) error {
				if len(files) == 0 {
					if err := b.AddMember(ctx, *group, name); err != nil {
						return err
					}
					printSuccess("Added member %s", StyleValue.Render(name))
					return nil
				}
				for _, f := range files {
					data, err := os.ReadFile(f)
					if err != nil {
						return fmt.Errorf("read %s: %w", f, err)
					}
					q, registered, err := b.AddQuote(ctx, *group, name, data)
					if err != nil {
						return fmt.Errorf("%s: %w", f, err)
					}
					if registered {
						printInfo("Registered member %s", StyleValue.Render(q.Member))
					}
					logger.Debug("stored quote", "file", f, "id", q.ID, "path", b.Path(*group, q))
					printSuccess("Stored %s as %s", f, StyleNumber.Render(q.ID))
				}
				return nil
			})
		},
	}
}

func (c *CLI) quotesAliasCommand(group *string) *cobra.Command {
	return &cobra.Command{
		Use:     "alias <name> <alias>",
		Short:   "Add an alias for a member",
		Example: `  yiyin quotes alias -g 123456 小明 明明`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			return c.withBook(cmd.Context(), func(b *quotes.Book) error {
				canonical, err := b.AddAlias(cmd.Context(), *group, args[0], args[1])
				if err != nil {
					return err
				}
				printSuccess("%s is now an alias of %s", StyleValue.Render(args[1]), StyleValue.Render(canonical))
				return nil
			})
		},
	}
}

func (c *CLI) quotesListCommand(group *string) *cobra.Command {
	var showQuotes bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members, aliases and quote counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withBook(ctx, func(b *quotes.Book) error {
				members, err := b.Members(ctx, *group)
				if err != nil {
					return err
				}
				if len(members) == 0 {
					printInfo("Group %s has no members", *group)
					return nil
				}
				fmt.Fprintln(stdout, StyleTitle.Render("Members of " + *group))
				for _, m := range members {
					label := m.Name
					if len(m.Aliases) > 0 {
						label += StyleDim.Render(" (" + strings.Join(m.Aliases, ", ") + ")")
					}
					printKeyValue(StyleNumber.Render(fmt.Sprint(m.Count)), label)
				}
				if !showQuotes {
					printNewline()
					printNextStep("Show quote IDs", "yiyin quotes list -g "+*group+" --quotes")
					return nil
				}

				list, err := b.List(ctx, *group)
				if err != nil {
					return err
				}
				printNewline()
				fmt.Fprintln(stdout, StyleTitle.Render("Quotes"))
				for _, q := range list {
					printKeyValue(q.ID, q.Member+StyleDim.Render("  "+q.Filename))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showQuotes, "quotes", false, "also list every quote ID")
	return cmd
}

func (c *CLI) quotesDeleteCommand(group *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete quotes by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withBook(ctx, func(b *quotes.Book) error {
				for _, id := range args {
					q, err := b.Delete(ctx, *group, id)
					if err != nil {
						return err
					}
					printSuccess("Deleted %s (%s)", StyleNumber.Render(q.ID), q.Member)
				}
				return nil
			})
		},
	}
}

func (c *CLI) quotesReindexCommand(group *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Index images found on disk and drop entries whose file is gone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withBook(ctx, func(b *quotes.Book) error {
				added, removed, err := b.Reindex(ctx, *group)
				if err != nil {
					return err
				}
				printSuccess("Reindexed group %s", *group)
				printDetail("%d added, %d removed", added, removed)
				return nil
			})
		},
	}
}

func (c *CLI) quotesBrowseCommand(group *string) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse quotes interactively",
		Long: `Browse a group's quotes in the terminal. Enter prints the selected
image path, d deletes the selected quote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireGroup(group); err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withBook(ctx, func(b *quotes.Book) error {
				return c.runBrowse(ctx, b, *group, member)
			})
		},
	}
	cmd.Flags().StringVarP(&member, "member", "m", "", "only show this member (name or alias)")
	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, b *quotes.Book, group, member string) error {
	rows, err := quoteRows(ctx, b, group, member)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		printInfo("No quotes to browse")
		return nil
	}

	model := NewQuoteListModel(rows, func(id string) error {
		_, err := b.Delete(ctx, group, id)
		return err
	})
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	m := final.(QuoteListModel)
	if m.Deleted > 0 {
		printSuccess("Deleted %d quotes", m.Deleted)
	}
	if m.Selected != nil {
		fmt.Fprintln(stdout, m.Selected.Path)
	}
	return nil
}

// quoteRows lists the group's quotes, optionally for one member, with file
// sizes for display.
func quoteRows(ctx context.Context, b *quotes.Book, group, member string) ([]QuoteRow, error) {
	canonical := ""
	if member != "" {
		name, ok, err := b.Resolve(ctx, group, member)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(errors.ErrCodeMemberMissing, "member %q not found", member)
		}
		canonical = name
	}

	list, err := b.List(ctx, group)
	if err != nil {
		return nil, err
	}
	var rows []QuoteRow
	for _, q := range list {
		if canonical != "" && q.Member != canonical {
			continue
		}
		row := QuoteRow{ID: q.ID, Member: q.Member, Path: b.Path(group, q), Size: -1}
		if fi, err := os.Stat(row.Path); err == nil {
			row.Size = fi.Size()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
