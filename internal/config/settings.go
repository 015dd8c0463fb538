package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type RecognitionConfig struct {
	// google | deepgram
	Provider         string `mapstructure:"provider"`
	StreamingLimitMs int64  `mapstructure:"streaming_limit_ms"`
	LanguageCode     string `mapstructure:"language_code"`
	SampleRateHz     int32  `mapstructure:"sample_rate_hz"`
	MinSpeakers      int32  `mapstructure:"min_speakers"`
	MaxSpeakers      int32  `mapstructure:"max_speakers"`
	RestartSettleMs  int64  `mapstructure:"restart_settle_ms"`
	OpenRetries      int    `mapstructure:"open_retries"`
	InboxSize        int    `mapstructure:"inbox_size"`
	DeepgramModel    string `mapstructure:"deepgram_model"`
}

func (r RecognitionConfig) StreamingLimit() time.Duration {
	return time.Duration(r.StreamingLimitMs) * time.Millisecond
}

type CaptureConfig struct {
	Command    string   `mapstructure:"command"`
	Args       []string `mapstructure:"args"`
	ChunkBytes int      `mapstructure:"chunk_bytes"`
}

type AssistantConfig struct {
	// gemini | openai | ollama
	Provider         string   `mapstructure:"provider"`
	Model            string   `mapstructure:"model"`
	Temperature      float32  `mapstructure:"temperature"`
	DeltaBufferLimit uint     `mapstructure:"delta_buffer_limit"`
	DeltaTimeMs      int64    `mapstructure:"delta_time_ms"`
	OllamaURLs       []string `mapstructure:"ollama_urls"`
}

type SuggestionConfig struct {
	MinTranscriptChars int    `mapstructure:"min_transcript_chars"`
	SystemPromptFile   string `mapstructure:"system_prompt_file"`
	OCRTimeoutSecs     int    `mapstructure:"ocr_timeout_secs"`
	SolveTimeoutSecs   int    `mapstructure:"solve_timeout_secs"`
	PersistTimeoutSecs int    `mapstructure:"persist_timeout_secs"`
}

type DBConfig struct {
	// sqlite | mysql
	Driver     string `mapstructure:"driver"`
	SqlitePath string `mapstructure:"sqlite_path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	PoolSize   int    `mapstructure:"pool_size"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Pass    string `mapstructure:"pass"`
	TTLMins int64  `mapstructure:"ttl_mins"`
}

// Credentials never live in the yaml file.
type Credentials struct {
	GoogleAPIKey   string `envconfig:"GOOGLE_API_KEY"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
}

type Settings struct {
	Server      ServerConfig      `mapstructure:"server"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	Suggestion  SuggestionConfig  `mapstructure:"suggestion"`
	DB          DBConfig          `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	UserID      string            `mapstructure:"user_id"`
	Env         string            `mapstructure:"env"`
	Debug       bool              `mapstructure:"debug"`
	TUI         bool              `mapstructure:"tui"`
	Credentials Credentials       `mapstructure:"-"`
}

func setDefaults() {
	viper.SetDefault("server.addr", ":7373")

	viper.SetDefault("recognition.provider", "google")
	viper.SetDefault("recognition.streaming_limit_ms", 60000)
	viper.SetDefault("recognition.language_code", "en-US")
	viper.SetDefault("recognition.sample_rate_hz", 16000)
	viper.SetDefault("recognition.min_speakers", 2)
	viper.SetDefault("recognition.max_speakers", 2)
	viper.SetDefault("recognition.restart_settle_ms", 100)
	viper.SetDefault("recognition.open_retries", 3)
	viper.SetDefault("recognition.inbox_size", 512)
	viper.SetDefault("recognition.deepgram_model", "nova-2")

	viper.SetDefault("capture.command", "rec")
	viper.SetDefault("capture.args", []string{
		"-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-c", "1", "-r", "16000", "-",
	})
	viper.SetDefault("capture.chunk_bytes", 4096)

	viper.SetDefault("assistant.provider", "gemini")
	viper.SetDefault("assistant.model", "gemini-2.0-flash")
	viper.SetDefault("assistant.temperature", 0.7)
	viper.SetDefault("assistant.delta_buffer_limit", 24)
	viper.SetDefault("assistant.delta_time_ms", 150)

	viper.SetDefault("suggestion.min_transcript_chars", 20)
	viper.SetDefault("suggestion.ocr_timeout_secs", 30)
	viper.SetDefault("suggestion.solve_timeout_secs", 30)
	viper.SetDefault("suggestion.persist_timeout_secs", 5)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.sqlite_path", "interm.db")
	viper.SetDefault("database.pool_size", 10)

	viper.SetDefault("redis.ttl_mins", 60)

	viper.SetDefault("user_id", "local")
	viper.SetDefault("env", "dev")
}

func Load() (*Settings, error) {
	setDefaults()
	// Load settings from a configuration file or environment variables
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	creds, err := LoadCredentials()
	if err != nil {
		return nil, err
	}
	settings.Credentials = *creds

	return &settings, nil
}

// LoadCredentials reads API keys from the environment, with an optional .env file.
func LoadCredentials() (*Credentials, error) {
	_ = godotenv.Load()

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return &creds, nil
}

func genEnv() string {
	_ = viper.BindEnv("ENV")
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
