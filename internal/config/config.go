package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=mongo memory"`
	URI    string `mapstructure:"uri" validate:"required_if=Driver mongo"`
	Name   string `mapstructure:"name" validate:"required_if=Driver mongo"`
}

// RedisConfig configures athlete claims. An empty Addr disables claiming.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	ClaimTTL time.Duration `mapstructure:"claim_ttl" validate:"gt=0"`
}

// S3Config configures the report archive. An empty BucketName disables it.
type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	ReportPrefix    string        `mapstructure:"report_prefix"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl" validate:"gt=0"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration" validate:"gt=0"` // Lifetime of tokens minted by the CLI
}

type LogConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=dev development prod production"`
}

// SchedulerConfig tunes the batch refresh.
type SchedulerConfig struct {
	Weeks                    int           `mapstructure:"weeks" validate:"gte=1,lte=52"`
	Workers                  int           `mapstructure:"workers" validate:"gte=1"`
	MaxAttempts              int           `mapstructure:"max_attempts" validate:"gte=1"`
	RetryInitial             time.Duration `mapstructure:"retry_initial" validate:"gt=0"`
	RetryMax                 time.Duration `mapstructure:"retry_max" validate:"gtefield=RetryInitial"`
	Deadline                 time.Duration `mapstructure:"deadline" validate:"gt=0"`
	WednesdayTestProbability float64       `mapstructure:"wednesday_test_probability" validate:"gte=0,lte=1"`
	Interval                 time.Duration `mapstructure:"interval" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "training_planner")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.claim_ttl", "15m")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "eu-north-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.report_prefix", "refresh-reports/")
	v.SetDefault("s3.presign_ttl", "15m")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("scheduler.weeks", 4)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.max_attempts", 3)
	v.SetDefault("scheduler.retry_initial", "200ms")
	v.SetDefault("scheduler.retry_max", "5s")
	v.SetDefault("scheduler.deadline", "10m")
	v.SetDefault("scheduler.wednesday_test_probability", 0.3)
	v.SetDefault("scheduler.interval", "24h")
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	return Load(viper.New(), path)
}

// Load reads configuration into v, which may already carry bound flags.
// An optional .env next to the config file is loaded into the process
// environment first; variables already set win over the file.
func Load(v *viper.Viper, path string) (config Config, err error) {
	dotEnv := filepath.Join(path, ".env")
	if _, statErr := os.Stat(dotEnv); statErr == nil {
		if err = godotenv.Load(dotEnv); err != nil {
			return config, fmt.Errorf("load %s: %w", dotEnv, err)
		}
	}

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, scheduler.max_attempts -> SCHEDULER_MAX_ATTEMPTS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil
	} else if err != nil {
		return config, err
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	if err = Validate(config); err != nil {
		return config, err
	}
	return config, nil
}

var validate = validator.New()

// Validate checks field constraints on a loaded Config.
func Validate(c Config) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ArchiveEnabled reports whether refresh reports go to object storage.
func (c S3Config) ArchiveEnabled() bool { return c.BucketName != "" }

// ClaimsEnabled reports whether athlete claims go through redis.
func (c RedisConfig) ClaimsEnabled() bool { return c.Addr != "" }
