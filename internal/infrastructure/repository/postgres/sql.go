package postgres

import (
	"database/sql"
	"strings"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	text := err.Error()
	return strings.Contains(text, "23505") || strings.Contains(text, "duplicate key value")
}

func nullableString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// chunkSize bounds multi-row INSERT statements for the event tables. The
// play-by-play files carry thousands of rows per season; one statement per
// row is too chatty and one statement per file would overrun lib/pq's
// 65535 placeholder limit.
const chunkSize = 200

func chunkBounds(total, offset int) (int, int) {
	end := offset + chunkSize
	if end > total {
		end = total
	}
	return offset, end
}
