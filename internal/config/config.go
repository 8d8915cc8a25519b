package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AssistantName    = "LaGrace"
	AssistantVersion = "1.0.0"
)

type Config struct {
	Wake     WakeConfig
	Audio    AudioConfig
	STT      STTConfig
	TTS      TTSConfig
	Bus      BusConfig
	DB       DBConfig
	Log      LogConfig
	Status   StatusConfig
	Announce AnnounceConfig
	Intents  IntentsConfig
}

type WakeConfig struct {
	Word       string        `validate:"required"`
	Variations []string      `validate:"min=1,dive,required"`
	Timeout    time.Duration `validate:"gt=0"`
}

type AudioConfig struct {
	SampleRate int `validate:"oneof=8000 16000 22050 44100 48000"`
	ChunkSize  int `validate:"gt=0"`
}

type STTConfig struct {
	ModelPath string `validate:"required"`
}

type TTSConfig struct {
	Enabled     bool
	PiperBinary string `validate:"required_if=Enabled true"`
	VoiceModel  string `validate:"required_if=Enabled true"`
	Speaker     int    `validate:"gte=0"`
	LengthScale float64
}

type BusConfig struct {
	Transport         string `validate:"oneof=socketio mqtt websocket none"`
	URL               string `validate:"required_unless=Transport none"`
	ClientID          string
	Username          string
	Password          string
	TopicPrefix       string        `validate:"required_if=Transport mqtt"`
	ReconnectDelay    time.Duration `validate:"gt=0"`
	MaxReconnectDelay time.Duration `validate:"gtefield=ReconnectDelay"`
	KeepaliveInterval time.Duration `validate:"gt=0"`
	PrintTimeout      time.Duration `validate:"gt=0"`
	QueueSize         int           `validate:"gt=0"`
}

type DBConfig struct {
	Driver      string `validate:"oneof=sqlite pgx postgres"`
	DSN         string
	SearchPaths []string
}

type LogConfig struct {
	Level      string `validate:"oneof=debug info warn error"`
	File       string
	MaxSizeMB  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
}

type StatusConfig struct {
	Addr string
}

type AnnounceConfig struct {
	DedupWindow       time.Duration `validate:"gte=0"`
	StockLowPerMinute float64       `validate:"gt=0"`
	StockLowBurst     int           `validate:"gt=0"`
}

type IntentsConfig struct {
	ExtraPatterns map[string][]string
}

// Load reads .env, an optional config file (path, or lagrace.yaml in the
// usual places) and environment variables such as BUS_URL or DB_DSN.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lagrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.lagrace")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Wake: WakeConfig{
			Word:       v.GetString("wake.word"),
			Variations: stringList(v.Get("wake.variations")),
			Timeout:    v.GetDuration("wake.timeout"),
		},
		Audio: AudioConfig{
			SampleRate: v.GetInt("audio.sample_rate"),
			ChunkSize:  v.GetInt("audio.chunk_size"),
		},
		STT: STTConfig{
			ModelPath: v.GetString("stt.model_path"),
		},
		TTS: TTSConfig{
			Enabled:     v.GetBool("tts.enabled"),
			PiperBinary: v.GetString("tts.piper_binary"),
			VoiceModel:  v.GetString("tts.voice_model"),
			Speaker:     v.GetInt("tts.speaker"),
			LengthScale: v.GetFloat64("tts.length_scale"),
		},
		Bus: BusConfig{
			Transport:         strings.ToLower(v.GetString("bus.transport")),
			URL:               v.GetString("bus.url"),
			ClientID:          v.GetString("bus.client_id"),
			Username:          v.GetString("bus.username"),
			Password:          v.GetString("bus.password"),
			TopicPrefix:       strings.Trim(v.GetString("bus.topic_prefix"), "/"),
			ReconnectDelay:    v.GetDuration("bus.reconnect_delay"),
			MaxReconnectDelay: v.GetDuration("bus.max_reconnect_delay"),
			KeepaliveInterval: v.GetDuration("bus.keepalive_interval"),
			PrintTimeout:      v.GetDuration("bus.print_timeout"),
			QueueSize:         v.GetInt("bus.queue_size"),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(v.GetString("db.driver")),
			DSN:         v.GetString("db.dsn"),
			SearchPaths: stringList(v.Get("db.search_paths")),
		},
		Log: LogConfig{
			Level:      strings.ToLower(v.GetString("log.level")),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Status: StatusConfig{
			Addr: v.GetString("status.addr"),
		},
		Announce: AnnounceConfig{
			DedupWindow:       v.GetDuration("announce.dedup_window"),
			StockLowPerMinute: v.GetFloat64("announce.stock_low_per_minute"),
			StockLowBurst:     v.GetInt("announce.stock_low_burst"),
		},
		Intents: IntentsConfig{
			ExtraPatterns: v.GetStringMapStringSlice("intents.extra_patterns"),
		},
	}

	// SOCKET_URL is the historical name of the POS server endpoint.
	if socketURL := v.GetString("socket_url"); socketURL != "" && (cfg.Bus.Transport == "socketio" || cfg.Bus.Transport == "websocket") {
		cfg.Bus.URL = socketURL
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wake.word", "lagrace")
	v.SetDefault("wake.variations", []string{
		"lagrace", "la grace", "la grâce", "lagrâce", "la grass", "lagras", "la gras",
		"hey lagrace", "ok lagrace", "bonjour lagrace", "salut lagrace", "dis lagrace", "hé lagrace",
	})
	v.SetDefault("wake.timeout", 12*time.Second)

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.chunk_size", 4000)

	v.SetDefault("stt.model_path", "models/vosk-model-small-fr-0.22")

	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.piper_binary", "piper")
	v.SetDefault("tts.voice_model", "models/fr_FR-upmc-medium.onnx")
	v.SetDefault("tts.speaker", 0)
	v.SetDefault("tts.length_scale", 1.0)

	v.SetDefault("bus.transport", "socketio")
	v.SetDefault("bus.url", "http://localhost:3030")
	v.SetDefault("bus.client_id", "lagrace-assistant")
	v.SetDefault("bus.topic_prefix", "lagrace")
	v.SetDefault("bus.reconnect_delay", 3*time.Second)
	v.SetDefault("bus.max_reconnect_delay", 30*time.Second)
	v.SetDefault("bus.keepalive_interval", 30*time.Second)
	v.SetDefault("bus.print_timeout", 10*time.Second)
	v.SetDefault("bus.queue_size", 64)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.search_paths", []string{"../data/lagrace.db", "data/lagrace.db", "~/.lagrace/data/lagrace.db"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/lagrace.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("status.addr", "")

	v.SetDefault("announce.dedup_window", 10*time.Second)
	v.SetDefault("announce.stock_low_per_minute", 1.0)
	v.SetDefault("announce.stock_low_burst", 1)
}

// stringList accepts a YAML list or a comma separated string.
func stringList(raw any) []string {
	var items []string
	switch t := raw.(type) {
	case string:
		items = strings.Split(t, ",")
	case []string:
		items = t
	case []any:
		for _, it := range t {
			items = append(items, fmt.Sprint(it))
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
