package mysql

import (
	"strings"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN_ForcesParseTime(t *testing.T) {
	out, err := DSN("sync:pw@tcp(db:3306)/listing_sync?charset=utf8mb4")
	require.NoError(t, err)

	cfg, err := driver.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "listing_sync", cfg.DBName)
	assert.Equal(t, "db:3306", cfg.Addr)
}

func TestDSN_Invalid(t *testing.T) {
	_, err := DSN("not a dsn")
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := clip(long, maxText)
	assert.Equal(t, maxText, len([]rune(got)))
	assert.Equal(t, "12 Oak Ave", clip("12 Oak Ave", maxText))
}
