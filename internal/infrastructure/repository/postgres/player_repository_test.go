package postgres

import (
	"fmt"
	"strings"
	"testing"
)

func TestPlayerUpsertKeepsBiographyOnSparseRows(t *testing.T) {
	// Stub rows from stat lines and the archive carry blank text columns;
	// the merge must never let them erase what a roster sync wrote.
	guarded := []string{"shoots", "catches", "height", "hometown", "home_province", "birth_country", "image_url"}
	for _, column := range guarded {
		want := fmt.Sprintf("%s = COALESCE(NULLIF(EXCLUDED.%s, ''), players.%s)", column, column, column)
		if !strings.Contains(playerUpsertConflictClause, want) {
			t.Fatalf("column %s can be blanked by a sparse row", column)
		}
	}

	if !strings.Contains(playerUpsertConflictClause, "weight = COALESCE(EXCLUDED.weight, players.weight)") {
		t.Fatalf("weight lost its null guard")
	}
	if !strings.Contains(playerUpsertConflictClause, "birth_date = COALESCE(EXCLUDED.birth_date, players.birth_date)") {
		t.Fatalf("birth_date lost its null guard")
	}
}
