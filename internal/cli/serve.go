package cli

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yiyinbot/yiyin/pkg/bot"
	"github.com/yiyinbot/yiyin/pkg/cache"
	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/fonts"
	"github.com/yiyinbot/yiyin/pkg/integrations/avatar"
	"github.com/yiyinbot/yiyin/pkg/integrations/gemini"
	"github.com/yiyinbot/yiyin/pkg/integrations/llm"
	"github.com/yiyinbot/yiyin/pkg/integrations/translate"
	"github.com/yiyinbot/yiyin/pkg/integrations/wolfram"
	"github.com/yiyinbot/yiyin/pkg/observability"
	"github.com/yiyinbot/yiyin/pkg/onebot"
	"github.com/yiyinbot/yiyin/pkg/quotes"
	"github.com/yiyinbot/yiyin/pkg/render/screenshot"
	"github.com/yiyinbot/yiyin/pkg/toggle"
)

type serveOpts struct {
	listen string
	apiURL string
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot behind a OneBot v11 HTTP webhook",
		Long: `Run the bot. The OneBot implementation must be configured to POST events
to http://<listen>/onebot and to accept API calls at onebot.api_url.`,
		Example: `  yiyin serve
  yiyin serve --listen :9000 --api http://127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.listen != "" {
				cfg.OneBot.Listen = opts.listen
			}
			if opts.apiURL != "" {
				cfg.OneBot.APIURL = opts.apiURL
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "webhook listen address (overrides onebot.listen)")
	cmd.Flags().StringVar(&opts.apiURL, "api", "", "OneBot HTTP API URL (overrides onebot.api_url)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	logger := loggerFromContext(ctx)
	observability.NewLogHooks(logger).Register()
	defer observability.Reset()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cc, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cc.Close()

	deps := serviceDeps(ctx, cfg, cc, logger)
	deps.API = onebot.NewClient(cfg.OneBot.APIURL, cfg.OneBot.Token, cfg.OneBot.Timeout.Duration)
	deps.Quotes = quotes.New(st, quotesDir(cfg))
	deps.Toggles = toggle.New(st)
	deps.HTTP = &http.Client{Timeout: cfg.OneBot.Timeout.Duration}
	deps.Logger = logger

	b, err := bot.New(cfg, deps)
	if err != nil {
		return err
	}

	logger.Info("yiyin listening",
		"addr", cfg.OneBot.Listen,
		"api", cfg.OneBot.APIURL,
		"store", cfg.Store.Backend,
		"commands", len(b.Router().Commands()))
	srv := onebot.NewServer(b, cfg.OneBot.Secret, logger)
	err = srv.ListenAndServe(ctx, cfg.OneBot.Listen)
	if err == nil || ctx.Err() != nil {
		logger.Info("yiyin stopped")
		return nil
	}
	return err
}

// serviceDeps builds the optional upstream clients. Services without
// credentials are still created so the bot can tell users they are not
// configured.
func serviceDeps(ctx context.Context, cfg config.Config, cc cache.Cache, logger *log.Logger) bot.Deps {
	ttl := cfg.Cache.TTL.Duration

	var trOpts []translate.Option
	if cfg.Translate.Region != "" {
		trOpts = append(trOpts, translate.WithRegion(cfg.Translate.Region))
	}

	deps := bot.Deps{
		Screenshots: screenshot.New(screenshot.WithFonts(fonts.NewLoader(cfg.Render.FontPath))),
		Avatars:     avatar.NewClient(cc, ttl),
		Translator:  translate.NewClient(cc, cfg.Translate.SecretID, cfg.Translate.SecretKey, ttl, trOpts...),
		Solver:      wolfram.NewClient(cc, cfg.Wolfram.AppID, ttl),
	}
	if chat := newChatter(ctx, cfg, logger); chat != nil {
		deps.Chatter = chat
	}
	return deps
}

// newChatter returns the role-play backend named by roleplay.backend, or
// nil when its key is missing.
func newChatter(ctx context.Context, cfg config.Config, logger *log.Logger) llm.Chatter {
	switch cfg.Roleplay.Backend {
	case "gemini":
		gc, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Warn("role-play disabled", "backend", "gemini", "err", err)
			return nil
		}
		return gc
	default:
		if cfg.LLM.APIKey == "" {
			logger.Debug("role-play disabled", "backend", "llm", "reason", "no api key")
			return nil
		}
		return llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout.Duration)
	}
}
