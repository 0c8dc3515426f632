package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Remote backends
const (
	BackendMemory    = "memory"
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

// Session stores
const (
	SessionStoreBolt  = "bolt"
	SessionStoreRedis = "redis"
)

type (
	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		WorkDir      string
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Remote       RemoteConfig
		Database     DatabaseConfig
		Session      SessionConfig
		Storage      StorageConfig
		Mail         MailConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	RemoteConfig struct {
		Backend         string // memory | postgrest | postgres
		URL             string
		AnonKey         string
		Timeout         time.Duration
		WatchSchedule   string        // session watcher cron spec
		RefreshLeeway   time.Duration // refresh access tokens expiring within this delta
		TokenExpiration time.Duration // tokens issued by self-hosted backends
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SessionConfig struct {
		Store     string // bolt | redis
		Path      string
		RedisAddr string
		RedisDB   int
	}

	StorageConfig struct {
		B2KeyID  string
		B2AppKey string
		B2Bucket string
	}

	MailConfig struct {
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from the environment (optionally from `config/.env.<env>`).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Academia")
	conf.SetDefault("secretKey", "s3cr3t-academia-dev-key-change-me")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("serverDisableReqLogs", false)

	conf.SetDefault("remoteBackend", BackendMemory)
	conf.SetDefault("remoteURL", "")
	conf.SetDefault("remoteAnonKey", "")
	conf.SetDefault("remoteTimeout", 30*time.Second)
	conf.SetDefault("remoteWatchSchedule", "@every 1m")
	conf.SetDefault("remoteRefreshLeeway", 5*time.Minute)
	conf.SetDefault("remoteTokenExpiration", time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "academia")
	conf.SetDefault("dbUser", "academia")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("sessionStore", SessionStoreBolt)
	conf.SetDefault("sessionPath", filepath.Join("data", "session.db"))
	conf.SetDefault("sessionRedisAddr", "localhost:6379")
	conf.SetDefault("sessionRedisDB", 0)

	conf.SetDefault("b2KeyID", "")
	conf.SetDefault("b2AppKey", "")
	conf.SetDefault("b2Bucket", "")

	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridAPIKey", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatal(fmt.Errorf("config.defaultFromEmail: %v", err))
	}

	return &Config{
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		WorkDir:      workDir,
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetString("serverPort"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:  conf.GetBool("serverDisableReqLogs"),
		},
		Remote: RemoteConfig{
			Backend:         strings.ToLower(conf.GetString("remoteBackend")),
			URL:             strings.TrimRight(conf.GetString("remoteURL"), "/"),
			AnonKey:         conf.GetString("remoteAnonKey"),
			Timeout:         conf.GetDuration("remoteTimeout"),
			WatchSchedule:   conf.GetString("remoteWatchSchedule"),
			RefreshLeeway:   conf.GetDuration("remoteRefreshLeeway"),
			TokenExpiration: conf.GetDuration("remoteTokenExpiration"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Session: SessionConfig{
			Store:     strings.ToLower(conf.GetString("sessionStore")),
			Path:      conf.GetString("sessionPath"),
			RedisAddr: conf.GetString("sessionRedisAddr"),
			RedisDB:   conf.GetInt("sessionRedisDB"),
		},
		Storage: StorageConfig{
			B2KeyID:  conf.GetString("b2KeyID"),
			B2AppKey: conf.GetString("b2AppKey"),
			B2Bucket: conf.GetString("b2Bucket"),
		},
		Mail: MailConfig{
			DefaultFromEmail: *fromEmail,
			SendgridAPIKey:   conf.GetString("sendgridAPIKey"),
		},
	}
}
