package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// foundingTeams are the six original franchises with their upstream ids.
// They seed as provisional so the first teams feed completes them in place;
// until then archive events and schedules can already reference them.
var foundingTeams = []struct {
	ID       int64
	Name     string
	City     string
	Code     string
	Nickname string
}{
	{1, "Boston Fleet", "Boston", "BOS", "Fleet"},
	{2, "Minnesota Frost", "Minnesota", "MIN", "Frost"},
	{3, "Montréal Victoire", "Montréal", "MTL", "Victoire"},
	{4, "New York Sirens", "New York", "NY", "Sirens"},
	{5, "Ottawa Charge", "Ottawa", "OTT", "Charge"},
	{6, "Toronto Sceptres", "Toronto", "TOR", "Sceptres"},
}

// BootstrapSeed inserts founding reference rows into an empty database. A
// database that already has teams is left untouched.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM teams`); err != nil {
		return fmt.Errorf("count teams for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, t := range foundingTeams {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO teams (id, name, city, code, nickname, provisional)
VALUES (:id, :name, :city, :code, :nickname, TRUE)
ON CONFLICT (id) DO NOTHING`, map[string]any{
			"id":       t.ID,
			"name":     t.Name,
			"city":     t.City,
			"code":     t.Code,
			"nickname": t.Nickname,
		})
		if err != nil {
			return fmt.Errorf("bind seed team %s query: %w", t.Code, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed team %s: %w", t.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
