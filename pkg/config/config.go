// Package config loads the bot configuration from a TOML file.
//
// Secrets can be left out of the file and supplied through the environment
// instead; [Config.ApplyEnv] copies them over the file values:
//
//	TENCENT_SECRET_ID, TENCENT_SECRET_KEY  translate
//	WOLFRAM_APPID                          wolfram
//	YUNWU_API_KEY, YUNWU_BASE_URL          llm
//	GEMINI_API_KEY                         gemini
//	ONEBOT_TOKEN                           onebot API token
//	ONEBOT_SECRET                          webhook signature secret
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

const appName = "yiyin"

// Duration is a time.Duration that decodes from TOML strings like "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full bot configuration.
type Config struct {
	// DataDir holds quote images and the file store.
	DataDir string `toml:"data_dir"`
	// Superusers may run admin commands in any group.
	Superusers []string `toml:"superusers"`
	// BotName is shown on forwarded help and list messages.
	BotName string `toml:"bot_name"`
	// Workers bounds concurrent image jobs. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`

	OneBot   OneBot   `toml:"onebot"`
	Store    Store    `toml:"store"`
	Cache    Cache    `toml:"cache"`
	Render   Render   `toml:"render"`
	Tarot    Tarot    `toml:"tarot"`
	Mohe     Mohe     `toml:"mohe"`
	Emoji    Emoji    `toml:"emoji"`
	Roleplay Roleplay `toml:"roleplay"`

	Translate Translate `toml:"translate"`
	Wolfram   Wolfram   `toml:"wolfram"`
	LLM       LLM       `toml:"llm"`
	Gemini    Gemini    `toml:"gemini"`
}

// OneBot configures the webhook listener and the API endpoint.
type OneBot struct {
	Listen   string   `toml:"listen"`
	APIURL   string   `toml:"api_url"`
	Token    string   `toml:"token"`
	Secret   string   `toml:"secret"`
	SelfID   string   `toml:"self_id"`
	Timeout  Duration `toml:"timeout"`
	Nickname string   `toml:"nickname"`
}

// Store selects the record store backend.
type Store struct {
	Backend string `toml:"backend"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Cache selects the response cache backend.
type Cache struct {
	Backend   string   `toml:"backend"` // file, redis, none
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// Render configures the image renderers.
type Render struct {
	FontPath string `toml:"font_path"`
}

// Tarot points at the card images.
type Tarot struct {
	ImageDir string `toml:"image_dir"`
}

// Mohe points at the 摩诃 texts and images. Empty paths resolve under
// DataDir/mohe.
type Mohe struct {
	ListFile string `toml:"list_file"`
	ImageDir string `toml:"image_dir"`
}

// Emoji bounds random emoji reactions.
type Emoji struct {
	MaxRandomCount int `toml:"max_random_count"`
	MaxEmojiID     int `toml:"max_emoji_id"`
}

// Roleplay configures the role-play chat persona.
type Roleplay struct {
	Backend          string   `toml:"backend"` // llm or gemini
	Model            string   `toml:"model"`
	PromptFile       string   `toml:"prompt_file"`
	Prompt           string   `toml:"prompt"`
	ReplyProbability float64  `toml:"reply_probability"`
	MaxContext       int      `toml:"max_context_messages"`
	Cooldown         Duration `toml:"cooldown"`
	MaxReplyTokens   int      `toml:"max_reply_tokens"`
	Temperature      float64  `toml:"temperature"`
}

// Translate holds Tencent Cloud credentials.
type Translate struct {
	SecretID  string `toml:"secret_id"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
}

// Wolfram holds the WolframAlpha app ID.
type Wolfram struct {
	AppID string `toml:"app_id"`
}

// LLM configures the OpenAI-compatible endpoint.
type LLM struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Timeout Duration `toml:"timeout"`
}

// Gemini configures the Gemini backend.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		BotName: "一印Bot",
		OneBot: OneBot{
			Listen:  ":8080",
			APIURL:  "http://127.0.0.1:5700",
			Timeout: Duration{30 * time.Second},
		},
		Store: Store{
			Backend:         "file",
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "yiyin:",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   appName,
			MongoCollection: "records",
		},
		Cache: Cache{
			Backend:   "file",
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Emoji: Emoji{
			MaxRandomCount: 20,
			MaxEmojiID:     470,
		},
		Roleplay: Roleplay{
			Backend:          "llm",
			Model:            "claude-haiku-4-5-20251001",
			ReplyProbability: 0.03,
			MaxContext:       30,
			Cooldown:         Duration{5 * time.Minute},
			MaxReplyTokens:   150,
			Temperature:      0.85,
		},
		Translate: Translate{Region: "ap-guangzhou"},
		LLM: LLM{
			BaseURL: "https://yunwu.ai/v1",
			Timeout: Duration{60 * time.Second},
		},
		Gemini: Gemini{Model: "gemini-2.5-flash"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/yiyin/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return "data"
}

// Load reads path over [Default] and applies environment overrides. An
// empty path uses [DefaultPath]; a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg.ApplyEnv()
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	case os.IsNotExist(err):
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s not found", path)
	default:
		return Config{}, errors.Wrap(errors.ErrCodeInternal, err, "cannot read config %s", path)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Parse decodes TOML data over cfg. Keys the Config does not know are
// rejected so typos surface early.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
	}
	return nil
}

// ApplyEnv overrides secrets from the environment.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Translate.SecretID, "TENCENT_SECRET_ID")
	setFromEnv(&c.Translate.SecretKey, "TENCENT_SECRET_KEY")
	setFromEnv(&c.Wolfram.AppID, "WOLFRAM_APPID")
	setFromEnv(&c.LLM.APIKey, "YUNWU_API_KEY")
	setFromEnv(&c.LLM.BaseURL, "YUNWU_BASE_URL")
	setFromEnv(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&c.OneBot.Token, "ONEBOT_TOKEN")
	setFromEnv(&c.OneBot.Secret, "ONEBOT_SECRET")
	setFromEnv(&c.DataDir, "YIYIN_DATA_DIR")
	if v := os.Getenv("YIYIN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "file", "redis", "mongo":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "store.backend must be file, redis or mongo, got %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	switch c.Roleplay.Backend {
	case "", "llm", "gemini":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "roleplay.backend must be llm or gemini, got %q", c.Roleplay.Backend)
	}
	if p := c.Roleplay.ReplyProbability; p < 0 || p > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "roleplay.reply_probability must be within [0, 1], got %v", p)
	}
	if c.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	return nil
}

// IsSuperuser reports whether userID is listed in Superusers.
func (c *Config) IsSuperuser(userID string) bool {
	for _, id := range c.Superusers {
		if id == userID {
			return true
		}
	}
	return false
}

// MohePaths returns the 摩诃 list file and image directory.
func (c *Config) MohePaths() (list, images string) {
	list, images = c.Mohe.ListFile, c.Mohe.ImageDir
	if list == "" {
		list = filepath.Join(c.DataDir, "mohe", "mohe.json")
	}
	if images == "" {
		images = filepath.Join(c.DataDir, "mohe", "images")
	}
	return list, images
}

// RoleplayPrompt returns the inline prompt, or the contents of PromptFile.
func (c *Config) RoleplayPrompt() (string, error) {
	if c.Roleplay.Prompt != "" || c.Roleplay.PromptFile == "" {
		return c.Roleplay.Prompt, nil
	}
	data, err := os.ReadFile(c.Roleplay.PromptFile)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot read roleplay prompt")
	}
	return string(data), nil
}
