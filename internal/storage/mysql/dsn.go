package mysql

import (
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// DSN validates a user-supplied DSN and forces the options the ledger scans
// depend on: DATETIME columns must come back as time.Time, in UTC.
func DSN(raw string) (string, error) {
	cfg, err := driver.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("invalid MYSQL_DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}
