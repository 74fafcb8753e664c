package export

import (
	"fmt"
	"strings"
)

const defaultBusyTimeoutMS = 5000

// withPragmas appends journal and busy-timeout pragmas to a SQLite DSN unless
// the DSN already sets them. In-memory databases are returned unchanged.
func withPragmas(dsn string, busyTimeoutMS int) string {
	lower := strings.ToLower(dsn)
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return dsn
	}
	if !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = appendPragma(dsn, "journal_mode(WAL)")
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = appendPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn
}

func appendPragma(dsn, pragma string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=" + pragma
	}
	return dsn + "?_pragma=" + pragma
}
