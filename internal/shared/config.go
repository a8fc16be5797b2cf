package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"listing_sync/internal/app"
	"listing_sync/internal/domain"
)

type Config struct {
	AppEnv   string
	LogLevel string

	AppFolioClientID string
	AppFolioSecret   string
	AppFolioDomain   string
	AppFolioBase     string
	SourceRPS        int

	HubSpotKey         string
	HubDBBase          string
	InternalTableID    string
	PublicTableID      string
	HubDBRPS           int
	PhotoSlots         int
	PublicRecreateLive bool

	HTTPTimeout time.Duration

	MySQLDSN  string
	RedisAddr string
	RedisPass string
	RedisDB   int
	CacheTTL  time.Duration

	HTTPAddr       string
	MetricsAddr    string
	PushgatewayURL string
	SyncInterval   time.Duration
}

var required = []string{
	"APPFOLIO_CLIENT_ID",
	"APPFOLIO_CLIENT_SECRET",
	"APPFOLIO_DOMAIN",
	"HUBSPOT_API_KEY",
	"HUBDB_TABLE_ID",
	"HUBDB_TABLE_ID_PUBLIC",
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HUBDB_BASE_URL", "https://api.hubapi.com/cms/v3/hubdb")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("SOURCE_RPS", 5)
	v.SetDefault("HUBDB_RPS", 8)
	v.SetDefault("HUBDB_PHOTO_SLOTS", 10)
	v.SetDefault("HUBDB_PUBLIC_RECREATE_LIVE", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("SYNC_INTERVAL", "0s")
}

// Load reads the environment, after merging envFiles into it. With no files
// it tries ./.env and ignores it when absent. Variables already set in the
// process environment win over file values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env files %s: %w", strings.Join(envFiles, ","), err)
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	var missing []string
	for _, k := range required {
		if strings.TrimSpace(v.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	c := Config{
		AppEnv:             v.GetString("APP_ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		AppFolioClientID:   v.GetString("APPFOLIO_CLIENT_ID"),
		AppFolioSecret:     v.GetString("APPFOLIO_CLIENT_SECRET"),
		AppFolioDomain:     strings.TrimSpace(v.GetString("APPFOLIO_DOMAIN")),
		AppFolioBase:       v.GetString("APPFOLIO_BASE_URL"),
		SourceRPS:          v.GetInt("SOURCE_RPS"),
		HubSpotKey:         v.GetString("HUBSPOT_API_KEY"),
		HubDBBase:          v.GetString("HUBDB_BASE_URL"),
		InternalTableID:    strings.TrimSpace(v.GetString("HUBDB_TABLE_ID")),
		PublicTableID:      strings.TrimSpace(v.GetString("HUBDB_TABLE_ID_PUBLIC")),
		HubDBRPS:           v.GetInt("HUBDB_RPS"),
		PhotoSlots:         v.GetInt("HUBDB_PHOTO_SLOTS"),
		PublicRecreateLive: v.GetBool("HUBDB_PUBLIC_RECREATE_LIVE"),
		HTTPTimeout:        v.GetDuration("HTTP_TIMEOUT"),
		MySQLDSN:           v.GetString("MYSQL_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPass:          v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		CacheTTL:           time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		MetricsAddr:        v.GetString("METRICS_ADDR"),
		PushgatewayURL:     v.GetString("PUSHGATEWAY_URL"),
		SyncInterval:       v.GetDuration("SYNC_INTERVAL"),
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.PhotoSlots < 0 {
		c.PhotoSlots = 0
	}
	if c.MySQLDSN == "" {
		log.Debug().Msg("MYSQL_DSN is empty; run ledger disabled")
	}
	return c, nil
}

// Tables returns the two destinations in sync order. Both are draft tables;
// only the public one can recreate straight into the live revision.
func (c Config) Tables() app.Tables {
	return app.Tables{
		Internal: domain.Table{ID: c.InternalTableID, Label: "internal", DraftMode: true},
		Public: domain.Table{
			ID:           c.PublicTableID,
			Label:        "public",
			Public:       true,
			RecreateLive: c.PublicRecreateLive,
			DraftMode:    true,
		},
	}
}
