package core

import (
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

// ConfigDirEnv overrides the directory where `.env.<env>` files are looked up.
const ConfigDirEnv = "COURSEHUB_CONFIG_DIR"

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		BodyLimit                 string
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

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	UploadsConfig struct {
		Root              string
		MaxSubmissionSize int64
		AllowedExtensions []string
	}

	Config struct {
		AppName                   string
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		DefaultFromEmail          mail.Address
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridAPIKey            string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Uploads  UploadsConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration of the current ENV (DEV by default; TEST, QA, PROD).
// Values come from `<ENV>_*` environment variables, optionally seeded from `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "CourseHub")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "w3u!ck@7d5-h_0cq%5^x^z)f2m#yq&ri6o4z$b+l1e!t8u0n*v")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "CourseHub")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debugHost", ":4000")
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_bodyLimit", "25M")

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "coursehub")
	v.SetDefault("database_user", "coursehub")
	v.SetDefault("database_password", "coursehub")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "postgres")
	v.SetDefault("database_disableTLS", true)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("uploads_root", filepath.Join("var", "uploads"))
	v.SetDefault("uploads_maxSubmissionSize", int64(20<<20))
	v.SetDefault("uploads_allowedExtensions", "pdf,docx,doc,zip,rar,txt")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv(ConfigDirEnv)
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:  v.GetString("appName"),
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridAPIKey:            v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Address:                   v.GetString("server_address"),
			DebugHost:                 v.GetString("server_debugHost"),
			Host:                      v.GetString("server_host"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			BodyLimit:                 v.GetString("server_bodyLimit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Uploads: UploadsConfig{
			Root:              v.GetString("uploads_root"),
			MaxSubmissionSize: v.GetInt64("uploads_maxSubmissionSize"),
			AllowedExtensions: splitList(v.GetString("uploads_allowedExtensions")),
		},
	}
	return conf
}

// NewTestConfig returns a Config suited for unit tests: no I/O, short timeouts.
func NewTestConfig() *Config {
	return &Config{
		AppName:                   "CourseHub",
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		DefaultFromEmail:          mail.Address{Name: "CourseHub", Address: "noreply@localhost"},
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			BodyLimit:                 "25M",
		},
		Uploads: UploadsConfig{
			MaxSubmissionSize: 20 << 20,
			AllowedExtensions: []string{"pdf", "docx", "doc", "zip", "rar", "txt"},
		},
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item, true /* lower */); item != "" {
			items = append(items, strings.TrimPrefix(item, "."))
		}
	}
	return items
}
