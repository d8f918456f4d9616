package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/logger"
)

const (
	app       = "assessment-recommender"
	envPrefix = "RECOMMENDER"
)

type Config struct {
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	AI         AIConfig         `mapstructure:"ai"`
	Server     ServerConfig     `mapstructure:"server"`
}

type CorpusConfig struct {
	Path string `mapstructure:"path"`
}

type RetrievalConfig struct {
	TopK         int           `mapstructure:"top-k"`
	EmbedTimeout time.Duration `mapstructure:"embed-timeout"`
	CacheSize    int           `mapstructure:"cache-size"`
}

type NormalizerConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user-agent"`
	MaxBodyBytes int64         `mapstructure:"max-body-bytes"`
}

type PromptConfig struct {
	MaxQueryRunes       int `mapstructure:"max-query-runes"`
	MaxDescriptionRunes int `mapstructure:"max-description-runes"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	EmbeddingProvider string        `mapstructure:"embedding-provider"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxOutputTokens   int           `mapstructure:"max-output-tokens"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Gemini            GeminiConfig  `mapstructure:"gemini"`
	OpenAI            OpenAIConfig  `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	BaseURL        string `mapstructure:"base-url"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	RateLimit       float64       `mapstructure:"rate-limit"`
	Burst           int           `mapstructure:"burst"`
	CORSOrigin      string        `mapstructure:"cors-origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "assessment-recommender recommends assessments for a hiring query or a job description url",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	envBindings := map[string][]string{
		"ai.gemini.api-key": {"GEMINI_API_KEY"},
		"ai.openai.api-key": {"OPENAI_API_KEY", "GROQ_API_KEY"},
	}
	for key, envs := range envBindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			log.Fatalf("binding %s environment variables: %v", strings.Join(envs, ", "), err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is assessment-recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("corpus.path", "data/corpus.json.gz")

	v.SetDefault("retrieval.top-k", 20)
	v.SetDefault("retrieval.embed-timeout", 15*time.Second)
	v.SetDefault("retrieval.cache-size", 256)

	v.SetDefault("normalizer.timeout", 30*time.Second)
	v.SetDefault("normalizer.user-agent", "")
	v.SetDefault("normalizer.max-body-bytes", 5<<20)

	v.SetDefault("prompt.max-query-runes", 6000)
	v.SetDefault("prompt.max-description-runes", 600)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.embedding-provider", "")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max-output-tokens", 4000)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	v.SetDefault("ai.gemini.max-retries", 2)
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.base-url", "")
	v.SetDefault("ai.openai.model", "llama-3.1-8b-instant")
	v.SetDefault("ai.openai.embedding-model", "text-embedding-3-small")
	v.SetDefault("ai.openai.max-retries", 2)

	v.SetDefault("server.listen", "127.0.0.1:8000")
	v.SetDefault("server.rate-limit", 0)
	v.SetDefault("server.burst", 0)
	v.SetDefault("server.cors-origin", "*")
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
}

func initConfig() {
	// Keys from .env behave like real environment variables; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Only an explicitly requested config has to exist.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error

	for _, provider := range []string{c.AI.Provider, c.AI.EmbeddingProvider} {
		switch strings.ToLower(strings.TrimSpace(provider)) {
		case "", providerGemini, providerOpenAI:
		default:
			errs = append(errs, fmt.Errorf("unsupported ai provider: %s", provider))
		}
	}
	if strings.TrimSpace(c.AI.Provider) == "" {
		errs = append(errs, errors.New("ai.provider is required"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top-k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai.temperature must be within [0, 2], got %v", c.AI.Temperature))
	}
	if c.AI.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("ai.max-output-tokens must be positive, got %d", c.AI.MaxOutputTokens))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate-limit must not be negative, got %v", c.Server.RateLimit))
	}

	return errors.Join(errs...)
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
