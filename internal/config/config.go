package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	OSMDB      DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Log        LogConfig
	Worker     WorkerConfig
	Conversion ConversionConfig
	Conflation ConflationConfig
	Basemap    BasemapConfig
	Central    CentralConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	JobStatusTTL time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	MaxRetries    int
}

// ConversionConfig - параметры конвертации сабмитов в OSM
type ConversionConfig struct {
	XFormsPath  string
	XLSFormPath string
	Generator   string
	StickyScope string
}

// ConflationConfig - параметры сопоставления с эталонными данными
type ConflationConfig struct {
	Tolerance   float64
	MergePolicy string
	Workers     int
	Reference   string
	Boundary    string
}

// BasemapConfig - параметры сборки офлайн подложки
type BasemapConfig struct {
	TileDir     string
	Source      string
	CustomURL   string
	Suffix      string
	XY          bool
	Workers     int
	PerWorker   int
	Timeout     time.Duration
	UserAgent   string
	Attribution string
	Append      bool
	OutputDir   string
}

// CentralConfig - доступ к серверу сбора анкет
type CentralConfig struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("API_HOST"),
			Port:        viper.GetInt("API_PORT"),
			Env:         viper.GetString("API_ENV"),
			CORSOrigins: viper.GetString("API_CORS_ORIGINS"),
		},
		OSMDB: DatabaseConfig{
			Host:            viper.GetString("OSM_DB_HOST"),
			Port:            viper.GetInt("OSM_DB_PORT"),
			User:            viper.GetString("OSM_DB_USER"),
			Password:        viper.GetString("OSM_DB_PASSWORD"),
			DBName:          viper.GetString("OSM_DB_NAME"),
			SSLMode:         viper.GetString("OSM_DB_SSLMODE"),
			MaxConns:        viper.GetInt("OSM_DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("OSM_DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("OSM_DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("OSM_DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			JobStatusTTL: time.Duration(viper.GetInt("JOB_STATUS_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			MaxRetries:    viper.GetInt("WORKER_MAX_RETRIES"),
		},
		Conversion: ConversionConfig{
			XFormsPath:  viper.GetString("XFORMS_PATH"),
			XLSFormPath: viper.GetString("XLSFORM_PATH"),
			Generator:   viper.GetString("OSM_GENERATOR"),
			StickyScope: viper.GetString("STICKY_SCOPE"),
		},
		Conflation: ConflationConfig{
			Tolerance:   viper.GetFloat64("CONFLATION_TOLERANCE"),
			MergePolicy: viper.GetString("CONFLATION_MERGE_POLICY"),
			Workers:     viper.GetInt("CONFLATION_WORKERS"),
			Reference:   viper.GetString("CONFLATION_REFERENCE"),
			Boundary:    viper.GetString("CONFLATION_BOUNDARY"),
		},
		Basemap: BasemapConfig{
			TileDir:     viper.GetString("BASEMAP_TILE_DIR"),
			Source:      viper.GetString("BASEMAP_SOURCE"),
			CustomURL:   viper.GetString("BASEMAP_CUSTOM_URL"),
			Suffix:      viper.GetString("BASEMAP_SUFFIX"),
			XY:          viper.GetBool("BASEMAP_XY"),
			Workers:     viper.GetInt("BASEMAP_WORKERS"),
			PerWorker:   viper.GetInt("BASEMAP_PER_WORKER"),
			Timeout:     time.Duration(viper.GetInt("BASEMAP_TIMEOUT")) * time.Second,
			UserAgent:   viper.GetString("BASEMAP_USER_AGENT"),
			Attribution: viper.GetString("BASEMAP_ATTRIBUTION"),
			Append:      viper.GetBool("BASEMAP_APPEND"),
			OutputDir:   viper.GetString("BASEMAP_OUTPUT_DIR"),
		},
		Central: CentralConfig{
			URL:      viper.GetString("CENTRAL_URL"),
			User:     viper.GetString("CENTRAL_USER"),
			Password: viper.GetString("CENTRAL_PASSWORD"),
			Timeout:  time.Duration(viper.GetInt("CENTRAL_TIMEOUT")) * time.Second,
		},
	}

	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults заполняет значения, которые не пришли ни из .env, ни из окружения
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.OSMDB.SSLMode == "" {
		c.OSMDB.SSLMode = "disable"
	}
	if c.OSMDB.MaxConns == 0 {
		c.OSMDB.MaxConns = 10
	}
	if c.OSMDB.MaxIdleConns == 0 {
		c.OSMDB.MaxIdleConns = 5
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Cache.JobStatusTTL == 0 {
		c.Cache.JobStatusTTL = 24 * time.Hour
	}
	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "basemap-workers"
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Conversion.Generator == "" {
		c.Conversion.Generator = "fieldmap-service 0.1"
	}
	if c.Conversion.StickyScope == "" {
		c.Conversion.StickyScope = "run"
	}
	if c.Conflation.Tolerance == 0 {
		c.Conflation.Tolerance = 2
	}
	if c.Conflation.MergePolicy == "" {
		c.Conflation.MergePolicy = "lowest"
	}
	if c.Conflation.Workers == 0 {
		c.Conflation.Workers = runtime.NumCPU()
	}
	if c.Basemap.TileDir == "" {
		c.Basemap.TileDir = "."
	}
	if c.Basemap.Source == "" {
		c.Basemap.Source = "esri"
	}
	if c.Basemap.Workers == 0 {
		c.Basemap.Workers = runtime.NumCPU()
	}
	if c.Basemap.PerWorker == 0 {
		c.Basemap.PerWorker = 4
	}
	if c.Basemap.Timeout == 0 {
		c.Basemap.Timeout = 30 * time.Second
	}
	if c.Basemap.UserAgent == "" {
		c.Basemap.UserAgent = "fieldmap-service/0.1"
	}
	if c.Basemap.OutputDir == "" {
		c.Basemap.OutputDir = "."
	}
	if c.Central.Timeout == 0 {
		c.Central.Timeout = 60 * time.Second
	}
}

// ParseList разбирает список через запятую, пропуская пустые элементы
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.OSMDB.Host,
		c.OSMDB.Port,
		c.OSMDB.User,
		c.OSMDB.Password,
		c.OSMDB.DBName,
		c.OSMDB.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return c.Redis.Addr()
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
