package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Local       LocalConfig
	JWT         JWTConfig
	WebSocket   WebSocketConfig
	CORS        CORSConfig
	Logging     LoggingConfig
	Translation TranslationConfig
	Speech      SpeechConfig
	Google      GoogleConfig
	Guest       GuestConfig
	Sync        SyncConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// URL is the CouchDB DSN including credentials.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

type LocalConfig struct {
	Path string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

type TranslationConfig struct {
	BaseURL           string
	SourceLang        string
	TargetLang        string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type SpeechConfig struct {
	TTSBaseURL string
	Timeout    time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether federated sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type GuestConfig struct {
	MaxProjects int
}

type SyncConfig struct {
	LiveUpdates bool
}

// fileConfig is the optional TOML file named by CONFIG_FILE. Its values
// become defaults that environment variables override.
type fileConfig struct {
	Server struct {
		Port string `toml:"port"`
		Host string `toml:"host"`
		Env  string `toml:"env"`
	} `toml:"server"`
	Database struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"database"`
	Local struct {
		Path string `toml:"path"`
	} `toml:"local"`
	Logging struct {
		Level string `toml:"level"`
	} `toml:"logging"`
	Translation struct {
		BaseURL    string `toml:"base_url"`
		SourceLang string `toml:"source_lang"`
		TargetLang string `toml:"target_lang"`
	} `toml:"translation"`
	Speech struct {
		TTSBaseURL string `toml:"tts_base_url"`
	} `toml:"speech"`
	Google struct {
		ClientID     string `toml:"client_id"`
		ClientSecret string `toml:"client_secret"`
		RedirectURL  string `toml:"redirect_url"`
	} `toml:"google"`
	Guest struct {
		MaxProjects int `toml:"max_projects"`
	} `toml:"guest"`
	Sync struct {
		LiveUpdates bool `toml:"live_updates"`
	} `toml:"sync"`
}

func Load() (*Config, error) {
	godotenv.Load()

	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read CONFIG_FILE: %w", err)
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("invalid CONFIG_FILE %s: %w", path, err)
		}
	}

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	translateTimeout, err := time.ParseDuration(getEnv("TRANSLATE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_TIMEOUT: %w", err)
	}

	speechTimeout, err := time.ParseDuration(getEnv("SPEECH_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SPEECH_TIMEOUT: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", or(file.Server.Port, "8080")),
			Host: getEnv("HOST", or(file.Server.Host, "127.0.0.1")),
			Env:  getEnv("ENV", or(file.Server.Env, "development")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", or(file.Database.Host, "localhost")),
			Port:     getEnv("DB_PORT", or(file.Database.Port, "5984")),
			User:     getEnv("DB_USER", or(file.Database.User, "admin")),
			Password: getEnv("DB_PASSWORD", or(file.Database.Password, "password")),
			Name:     getEnv("DB_NAME", or(file.Database.Name, "smart_reader")),
		},
		Local: LocalConfig{
			Path: getEnv("LOCAL_DB_PATH", or(file.Local.Path, "reader-local.db")),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 4096)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", or(file.Logging.Level, "info")),
		},
		Translation: TranslationConfig{
			BaseURL:           getEnv("TRANSLATE_BASE_URL", or(file.Translation.BaseURL, "https://translate.googleapis.com/translate_a/single")),
			SourceLang:        getEnv("TRANSLATE_SOURCE_LANG", or(file.Translation.SourceLang, "en")),
			TargetLang:        getEnv("TRANSLATE_TARGET_LANG", or(file.Translation.TargetLang, "bn")),
			RequestsPerSecond: getEnvAsFloat("TRANSLATE_RPS", 5),
			Timeout:           translateTimeout,
		},
		Speech: SpeechConfig{
			TTSBaseURL: getEnv("TTS_BASE_URL", or(file.Speech.TTSBaseURL, "https://translate.google.com/translate_tts")),
			Timeout:    speechTimeout,
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", file.Google.ClientID),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", file.Google.ClientSecret),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", or(file.Google.RedirectURL, "http://127.0.0.1:8080/api/v1/auth/google/callback")),
		},
		Guest: GuestConfig{
			MaxProjects: getEnvAsInt("GUEST_MAX_PROJECTS", orInt(file.Guest.MaxProjects, 3)),
		},
		Sync: SyncConfig{
			LiveUpdates: getEnvAsBool("REMOTE_LIVE_UPDATES", file.Sync.LiveUpdates),
		},
	}, nil
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
