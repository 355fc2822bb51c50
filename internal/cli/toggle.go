package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/toggle"
)

// toggleCommand creates the feature switch command.
func (c *CLI) toggleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Inspect and switch per-group features",
		Long: `Inspect and switch the features a group can turn on and off.

Features are named by key or display name: ` + toggle.Names(),
	}

	cmd.AddCommand(c.toggleListCommand())
	cmd.AddCommand(c.toggleSetCommand("enable", true))
	cmd.AddCommand(c.toggleSetCommand("disable", false))

	return cmd
}

// withToggles opens the configured store and runs fn with the switches.
func (c *CLI) withToggles(ctx context.Context, fn func(*toggle.Toggles) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(toggle.New(st))
}

func (c *CLI) toggleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list <group>",
		Short:   "Show every feature's state in a group",
		Example: `  yiyin toggle list 123456`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withToggles(ctx, func(t *toggle.Toggles) error {
				status, err := t.Status(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, StyleTitle.Render("Features of " + args[0]))
				for _, s := range status {
					printKeyValue(s.Key, featureState(s.Enabled)+"  "+StyleDim.Render(s.Name))
				}
				return nil
			})
		},
	}
}

func (c *CLI) toggleSetCommand(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:     verb + " <group> <feature>",
		Short:   fmt.Sprintf("%s a feature in a group", capitalize(verb)),
		Example: fmt.Sprintf("  yiyin toggle %s 123456 tarot\n  yiyin toggle %s 123456 角色扮演", verb, verb),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			group, name := args[0], args[1]
			return c.withToggles(ctx, func(t *toggle.Toggles) error {
				set := t.Disable
				if enabled {
					set = t.Enable
				}
				f, err := set(ctx, group, name)
				if err != nil {
					return err
				}
				printSuccess("%s is now %s in %s", f.Name, featureState(enabled), group)
				return nil
			})
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
