package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/blob"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// appConfig is everything the process reads from the environment.
type appConfig struct {
	Port       string
	Production bool
	CORSOrigin string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI  string
	MongoName string

	S3 blob.Config

	MetricsEnabled bool
	Engine         sellerhub.Config
}

// configDefaults holds every optional setting. Keys are the environment
// variable names.
var configDefaults = map[string]any{
	"APP_ENV":            "",
	"NODE_ENV":           "development",
	"PORT":               "8080",
	"CORS_ORIGIN":        "http://localhost:5173",
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"REDIS_PREFIX":       "rt",
	"MONGO_DB_URI":       "mongodb://localhost:27017",
	"MONGO_DB_NAME":      "sellerhub",
	"S3_BUCKET":          "",
	"S3_REGION":          "us-east-1",
	"S3_ENDPOINT":        "",
	"S3_ACCESS_KEY":      "",
	"S3_SECRET_KEY":      "",
	"S3_PUBLIC_BASE_URL": "",
	"S3_FOLDER":          "uploads",
	"METRICS_ENABLED":    true,
	"ACCESS_TOKEN_TTL":   72 * time.Hour,
	"REFRESH_TOKEN_TTL":  720 * time.Hour,
	"REFRESH_THROTTLE":   false,
	"SIGNIN_THROTTLE":    false,
	"AUDIT_ENABLED":      false,
	"COOKIE_CROSS_SITE":  false,
}

// newViper returns a viper instance backed by the process environment
// with the defaults applied.
func newViper() *viper.Viper {
	v := viper.New()
	for key, def := range configDefaults {
		v.SetDefault(key, def)
	}
	v.AutomaticEnv()
	return v
}

// loadConfig builds the process configuration from v. Secrets are required;
// everything else has a default. viper's typed getters turn malformed values
// into zero values, so typed settings go through cast's E variants and every
// malformed value is reported.
func loadConfig(v *viper.Viper) (appConfig, error) {
	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	var errs []error

	duration := func(key string) time.Duration {
		d, err := cast.ToDurationE(trimmed(v.Get(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	boolean := func(key string) bool {
		b, err := cast.ToBoolE(trimmed(v.Get(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return b
	}
	integer := func(key string) int {
		n, err := cast.ToIntE(trimmed(v.Get(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}

	appEnv := str("APP_ENV")
	if appEnv == "" {
		appEnv = str("NODE_ENV")
	}
	production := strings.EqualFold(appEnv, "production")

	cfg := appConfig{
		Port:          str("PORT"),
		Production:    production,
		CORSOrigin:    str("CORS_ORIGIN"),
		RedisAddr:     str("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       integer("REDIS_DB"),
		MongoURI:      str("MONGO_DB_URI"),
		MongoName:     str("MONGO_DB_NAME"),
		S3: blob.Config{
			Bucket:        str("S3_BUCKET"),
			Region:        str("S3_REGION"),
			Endpoint:      str("S3_ENDPOINT"),
			AccessKey:     str("S3_ACCESS_KEY"),
			SecretKey:     str("S3_SECRET_KEY"),
			PublicBaseURL: str("S3_PUBLIC_BASE_URL"),
			Folder:        str("S3_FOLDER"),
		},
		MetricsEnabled: boolean("METRICS_ENABLED"),
	}

	ec := sellerhub.DefaultConfig()
	ec.JWT.AccessSecret = []byte(v.GetString("ACCESS_TOKEN_SECRET"))
	ec.JWT.RefreshSecret = []byte(v.GetString("REFRESH_TOKEN_SECRET"))
	ec.JWT.AccessTTL = duration("ACCESS_TOKEN_TTL")
	ec.JWT.RefreshTTL = duration("REFRESH_TOKEN_TTL")
	ec.Session.RedisPrefix = str("REDIS_PREFIX")
	ec.Security.ProductionMode = production
	ec.Security.EnableRefreshThrottle = boolean("REFRESH_THROTTLE")
	ec.Security.EnableSignInThrottle = boolean("SIGNIN_THROTTLE")
	ec.Audit.Enabled = boolean("AUDIT_ENABLED")
	ec.Metrics.Enabled = cfg.MetricsEnabled
	ec.Metrics.EnableLatencyHistograms = cfg.MetricsEnabled
	if production {
		ec.Cookie.Secure = true
	}
	if ec.Cookie.Secure && boolean("COOKIE_CROSS_SITE") {
		ec.Cookie.SameSite = http.SameSiteNoneMode
	}
	cfg.Engine = ec

	if len(errs) > 0 {
		return appConfig{}, errors.Join(errs...)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

// trimmed strips surrounding whitespace from string values so " 15m " parses
// the way it reads.
func trimmed(value any) any {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}
