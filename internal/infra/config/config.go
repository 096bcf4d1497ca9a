package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// StringList читает список из JSON-массива или строки через запятую.
type StringList []string

// Decode реализует envconfig.Decoder.
func (l *StringList) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var items []string
		if err := json.Unmarshal([]byte(value), &items); err != nil {
			return fmt.Errorf("json список: %w", err)
		}
		*l = compact(items)
		return nil
	}
	*l = compact(strings.Split(value, ","))
	return nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Storage struct {
		Driver   string `envconfig:"STORAGE_DRIVER" default:"postgres"`
		PGDSN    string `envconfig:"PG_DSN"`
		MongoURI string `envconfig:"MONGO_URI"`
		MongoDB  string `envconfig:"MONGO_DB" default:"reflexion"`
	} `envconfig:""`

	Cache struct {
		RedisAddr        string        `envconfig:"REDIS_ADDR"`
		SentenceCountTTL time.Duration `envconfig:"SENTENCE_COUNT_TTL" default:"30s"`
	} `envconfig:""`

	Events struct {
		AMQPURL  string `envconfig:"AMQP_URL"`
		Exchange string `envconfig:"EVENTS_EXCHANGE" default:"reflexion.events"`
		RedisKey string `envconfig:"EVENTS_REDIS_KEY" default:"reflexion:events"`
	} `envconfig:""`

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET"`
		JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`
		APIKeys   StringList    `envconfig:"API_KEYS"`
	} `envconfig:""`

	Emotions StringList `envconfig:"EMOTIONS" default:"alegria,tristeza,miedo,ira,calma,ansiedad,amor,sorpresa"`

	Reflection struct {
		Endpoint string        `envconfig:"IA_API_ENDPOINT"`
		Secret   string        `envconfig:"API_SECRET_KEY"`
		Timeout  time.Duration `envconfig:"IA_TIMEOUT" default:"15s"`
	} `envconfig:""`

	HTTP struct {
		ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
		WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
		IdleTimeout    time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
		RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"25s"`
	} `envconfig:""`
}

// Load загружает конфиг из .env (если есть) и окружения.
func Load() AppConfig {
	cfg, err := Read()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Read загружает и проверяет конфиг, возвращая ошибку вместо завершения процесса.
func Read() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf(".env: %w", err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate отклоняет несовместимые настройки.
func (c AppConfig) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.PGDSN == "" {
			return errors.New("PG_DSN обязателен для STORAGE_DRIVER=postgres")
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("MONGO_URI обязателен для STORAGE_DRIVER=mongo")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET обязателен")
	}
	if len(c.Emotions) == 0 {
		return errors.New("EMOTIONS не может быть пустым")
	}
	if c.Reflection.Endpoint != "" && c.Reflection.Secret == "" {
		return errors.New("API_SECRET_KEY обязателен вместе с IA_API_ENDPOINT")
	}
	return nil
}
