package cli

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/tarot"
)

type tarotOpts struct {
	seed   uint64
	output string
}

func (c *CLI) tarotCommand() *cobra.Command {
	var opts tarotOpts

	cmd := &cobra.Command{
		Use:   "tarot",
		Short: "Draw a major arcana card",
		Long: `Draw a card the way /抽塔罗牌 does. With --output the card image from
tarot.image_dir is written there, rotated for a reversed draw.`,
		Example: `  yiyin tarot
  yiyin tarot --seed 42 -o card.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(opts.seed, opts.seed))
			}
			reading := tarot.Draw(rng)

			fmt.Fprintln(stdout, StyleTitle.Render(reading.Title()))
			printKeyValue(reading.Orientation(), reading.Meaning())

			if opts.output == "" {
				return nil
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			data, err := tarot.RenderCard(cfg.Tarot.ImageDir, reading)
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", opts.output, err)
			}
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for a reproducible draw")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the card image to this PNG file")

	return cmd
}
