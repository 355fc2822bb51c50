package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/fonts"
	"github.com/yiyinbot/yiyin/pkg/integrations/avatar"
	"github.com/yiyinbot/yiyin/pkg/render/screenshot"
	"github.com/yiyinbot/yiyin/pkg/render/symmetric"
)

// =============================================================================
// Screenshot
// =============================================================================

type screenshotOpts struct {
	nickname string
	avatar   string
	qq       string
	font     string
	output   string
}

func (c *CLI) screenshotCommand() *cobra.Command {
	var opts screenshotOpts

	cmd := &cobra.Command{
		Use:   "screenshot [text]",
		Short: "Render a chat bubble screenshot",
		Long: `Render a chat bubble the way the bot does for /截图上传.

The text comes from the argument, or from stdin when the argument is "-"
or missing. The avatar is read from --avatar, or fetched for --qq.`,
		Example: `  yiyin screenshot --nickname 小明 "今天吃什么"
  echo "多行\n文本" | yiyin screenshot --nickname 小明 --qq 10001 -o quote.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return c.runScreenshot(cmd.Context(), text, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.nickname, "nickname", "n", "群友", "nickname shown above the bubble")
	cmd.Flags().StringVar(&opts.avatar, "avatar", "", "avatar image file")
	cmd.Flags().StringVar(&opts.qq, "qq", "", "fetch the avatar of this QQ number")
	cmd.Flags().StringVar(&opts.font, "font", "", "font file (overrides render.font_path)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "screenshot.png", "output PNG file")

	return cmd
}

// readText returns args[0], or stdin when it is "-" or absent.
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (c *CLI) runScreenshot(ctx context.Context, text string, opts screenshotOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.font != "" {
		cfg.Render.FontPath = opts.font
	}

	var avatarData []byte
	switch {
	case opts.avatar != "":
		if avatarData, err = os.ReadFile(opts.avatar); err != nil {
			return fmt.Errorf("read avatar: %w", err)
		}
	case opts.qq != "":
		cc, err := openCache(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cc.Close()
		avatarData = avatar.NewClient(cc, cfg.Cache.TTL.Duration).Fetch(ctx, opts.qq)
		if avatarData == nil {
			printWarning("Avatar for %s unavailable, using placeholder", opts.qq)
		}
	}

	loader := fonts.NewLoader(cfg.Render.FontPath)
	r := screenshot.New(screenshot.WithFonts(loader))
	logger.Debug("rendering screenshot", "font", loader.Name(), "chars", len([]rune(text)))

	prog := newProgress(logger)
	data, err := r.Render(avatarData, opts.nickname, text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	prog.done("Rendered screenshot", "bytes", len(data))

	layout := r.Layout(opts.nickname, text)
	printSuccess("Screenshot rendered")
	printFile(opts.output)
	printImageStats(layout.Width, layout.Height, len(layout.Lines), len(data))
	return nil
}

// =============================================================================
// Symmetric
// =============================================================================

type symmetricOpts struct {
	direction string
	output    string
}

func (c *CLI) symmetricCommand() *cobra.Command {
	var opts symmetricOpts

	cmd := &cobra.Command{
		Use:   "symmetric <image>",
		Short: "Mirror one half of an image onto the other",
		Long: `Keep one half of an image and mirror it onto the other half.

Directions: left (左), right (右), up (上), down (下). Animated GIFs are
mirrored frame by frame and keep their timing.`,
		Example: `  yiyin symmetric cat.png
  yiyin symmetric -d 右 dance.gif -o dance-mirrored.gif`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSymmetric(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.direction, "direction", "d", string(symmetric.DefaultDirection), "half to keep: left, right, up, down")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <input>-<direction>.png|gif)")

	return cmd
}

func (c *CLI) runSymmetric(ctx context.Context, input string, opts symmetricOpts) error {
	logger := loggerFromContext(ctx)
	dir, err := symmetric.ParseDirection(opts.direction)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	spinner := newSpinnerWithContext(ctx, "Mirroring "+filepath.Base(input)+"...")
	spinner.Start()
	prog := newProgress(logger)
	out, err := symmetric.Transform(data, dir)
	if err != nil {
		spinner.StopWithError("Mirror failed")
		return err
	}
	spinner.Stop()
	prog.done("Mirrored "+filepath.Base(input), "direction", dir, "in", len(data), "out", len(out))

	output := opts.output
	if output == "" {
		output = symmetricOutputPath(input, dir, out)
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Mirrored %s (keep %s)", filepath.Base(input), dir)
	printFile(output)
	return nil
}

// symmetricOutputPath derives "<stem>-<direction>.<ext>" next to input,
// with the extension matching the encoded output.
func symmetricOutputPath(input string, dir symmetric.Direction, out []byte) string {
	ext := ".png"
	if strings.HasPrefix(string(out[:min(len(out), 6)]), "GIF8") {
		ext = ".gif"
	}
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return stem + "-" + string(dir) + ext
}
