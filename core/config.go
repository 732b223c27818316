package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		LoginRateLimit            int
		LoginRateWindow           time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | memory (API only)
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	BlobConfig struct {
		Driver    string // fs | s3
		Root      string
		Bucket    string
		Region    string
		Endpoint  string
		PathStyle bool
		AccessKey string // s3 only; the default AWS credentials chain is used when empty
		SecretKey string
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		RollbarToken     string
		DefaultFromEmail string
		SendgridAPIKey   string
		AdminEmails      []string
		WorkDir          string

		PasswordResetTimeout time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Blob     BlobConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) IsSQLite() bool {
	return c.Database.Engine == "sqlite"
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "kz1-3t0(q^u!u#b2w7$r=8d+6h&p@x5n_ratiba_dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("adminEmails", []string{})
	v.SetDefault("passwordResetTimeout", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("loginRateLimit", 10)
	v.SetDefault("loginRateWindow", time.Minute)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "ratiba")
	v.SetDefault("dbUser", "ratiba")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTls", true)
	v.SetDefault("dbPath", "ratiba.db")

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDb", 0)

	v.SetDefault("blobDriver", "fs")
	v.SetDefault("blobRoot", "exports")
	v.SetDefault("blobBucket", "")
	v.SetDefault("blobRegion", "us-east-1")
	v.SetDefault("blobEndpoint", "")
	v.SetDefault("blobPathStyle", false)
	v.SetDefault("blobAccessKey", "")
	v.SetDefault("blobSecretKey", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		AdminEmails:      v.GetStringSlice("adminEmails"),
		WorkDir:          wd,

		PasswordResetTimeout: v.GetDuration("passwordResetTimeout"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			LoginRateLimit:            v.GetInt("loginRateLimit"),
			LoginRateWindow:           v.GetDuration("loginRateWindow"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTls"),
			Path:          v.GetString("dbPath"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDb"),
		},
		Blob: BlobConfig{
			Driver:    v.GetString("blobDriver"),
			Root:      v.GetString("blobRoot"),
			Bucket:    v.GetString("blobBucket"),
			Region:    v.GetString("blobRegion"),
			Endpoint:  v.GetString("blobEndpoint"),
			PathStyle: v.GetBool("blobPathStyle"),
			AccessKey: v.GetString("blobAccessKey"),
			SecretKey: v.GetString("blobSecretKey"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory sqlite, debug off, fixed secret.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Ratiba",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		DefaultFromEmail: "noreply@test.local",
		AdminEmails:      []string{"registrar@test.local"},

		PasswordResetTimeout: 24 * time.Hour,

		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Blob:     BlobConfig{Driver: "fs"},
	}
}
