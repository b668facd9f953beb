package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmorneau/rinkstats/internal/domain/player"
	qb "github.com/jmorneau/rinkstats/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"first_name",
	"last_name",
	"position",
	"position_class",
	"shoots",
	"catches",
	"height",
	"weight",
	"birth_date",
	"hometown",
	"home_province",
	"birth_country",
	"rookie",
	"veteran",
	"image_url",
	"active",
}

// playerUpsertConflictClause merges a new row into an existing one. Stat
// lines and the archive can produce players with only a name and position;
// the biography columns are guarded so a sparse row never blanks what the
// roster sync already wrote, whichever writer lands last.
const playerUpsertConflictClause = `ON CONFLICT (id)
DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    position = EXCLUDED.position,
    position_class = EXCLUDED.position_class,
    shoots = COALESCE(NULLIF(EXCLUDED.shoots, ''), players.shoots),
    catches = COALESCE(NULLIF(EXCLUDED.catches, ''), players.catches),
    height = COALESCE(NULLIF(EXCLUDED.height, ''), players.height),
    weight = COALESCE(EXCLUDED.weight, players.weight),
    birth_date = COALESCE(EXCLUDED.birth_date, players.birth_date),
    hometown = COALESCE(NULLIF(EXCLUDED.hometown, ''), players.hometown),
    home_province = COALESCE(NULLIF(EXCLUDED.home_province, ''), players.home_province),
    birth_country = COALESCE(NULLIF(EXCLUDED.birth_country, ''), players.birth_country),
    rookie = EXCLUDED.rookie,
    veteran = EXCLUDED.veteran,
    image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), players.image_url),
    active = EXCLUDED.active,
    updated_at = NOW()`

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) UpsertMany(ctx context.Context, players []player.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert players: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range players {
		insertModel := playerInsertModel{
			ID:            item.ID,
			FirstName:     item.FirstName,
			LastName:      item.LastName,
			Position:      item.Position,
			PositionClass: string(item.PositionClass),
			Shoots:        item.Shoots,
			Catches:       item.Catches,
			Height:        item.Height,
			Weight:        item.Weight,
			BirthDate:     item.BirthDate,
			Hometown:      item.Hometown,
			HomeProvince:  item.HomeProvince,
			BirthCountry:  item.BirthCountry,
			Rookie:        item.Rookie,
			Veteran:       item.Veteran,
			ImageURL:      item.ImageURL,
			Active:        item.Active,
		}
		query, args, err := qb.InsertModel("players", insertModel, playerUpsertConflictClause)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player id=%d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players tx: %w", err)
	}
	return nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get player query: %w", err)
	}

	var row playerRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player id=%d: %w", id, err)
	}

	item := row.toDomain()
	return &item, nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// FindByNaturalKey matches on normalized full name, and on birth date when
// the key carries one. Ambiguous matches (two players sharing the key)
// return nil so the caller records an anomaly instead of guessing.
func (r *PlayerRepository) FindByNaturalKey(ctx context.Context, key string) (*player.Player, error) {
	name, birthDate := player.SplitNaturalKey(key)
	if name == "" {
		return nil, nil
	}

	builder := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Expr("LOWER(TRIM(first_name || ' ' || last_name)) = ?", name))
	if birthDate != nil {
		builder = builder.Where(qb.Eq("birth_date", *birthDate))
	}
	query, args, err := builder.OrderBy("id").Limit(2).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find player by natural key query: %w", err)
	}

	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find player by natural key: %w", err)
	}
	if len(rows) != 1 {
		return nil, nil
	}

	item := rows[0].toDomain()
	return &item, nil
}

func (r *PlayerRepository) UpsertRefs(ctx context.Context, refs []player.ExternalRef) error {
	if len(refs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert player refs: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, ref := range refs {
		insertModel := playerRefInsertModel{
			Source:      ref.Source,
			ExternalKey: ref.ExternalKey,
			PlayerID:    ref.PlayerID,
			Confidence:  ref.Confidence,
		}
		query, args, err := qb.InsertModel("player_external_refs", insertModel, `ON CONFLICT (source, external_key)
DO UPDATE SET
    player_id = EXCLUDED.player_id,
    confidence = EXCLUDED.confidence`)
		if err != nil {
			return fmt.Errorf("build upsert player ref query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player ref source=%s key=%s: %w", ref.Source, ref.ExternalKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert player refs tx: %w", err)
	}
	return nil
}

func (r *PlayerRepository) ResolveRef(ctx context.Context, source, externalKey string) (int64, error) {
	query, args, err := qb.Select("player_id").From("player_external_refs").
		Where(
			qb.Eq("source", source),
			qb.Eq("external_key", externalKey),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build resolve player ref query: %w", err)
	}

	var playerID int64
	if err := r.db.GetContext(ctx, &playerID, query, args...); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("resolve player ref source=%s key=%s: %w", source, externalKey, err)
	}
	return playerID, nil
}

type playerRow struct {
	ID            int64      `db:"id"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Position      string     `db:"position"`
	PositionClass string     `db:"position_class"`
	Shoots        string     `db:"shoots"`
	Catches       string     `db:"catches"`
	Height        string     `db:"height"`
	Weight        *int       `db:"weight"`
	BirthDate     *time.Time `db:"birth_date"`
	Hometown      string     `db:"hometown"`
	HomeProvince  string     `db:"home_province"`
	BirthCountry  string     `db:"birth_country"`
	Rookie        bool       `db:"rookie"`
	Veteran       bool       `db:"veteran"`
	ImageURL      string     `db:"image_url"`
	Active        bool       `db:"active"`
}

func (row playerRow) toDomain() player.Player {
	return player.Player{
		ID:            row.ID,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		Position:      row.Position,
		PositionClass: player.PositionClass(row.PositionClass),
		Shoots:        row.Shoots,
		Catches:       row.Catches,
		Height:        row.Height,
		Weight:        row.Weight,
		BirthDate:     row.BirthDate,
		Hometown:      row.Hometown,
		HomeProvince:  row.HomeProvince,
		BirthCountry:  row.BirthCountry,
		Rookie:        row.Rookie,
		Veteran:       row.Veteran,
		ImageURL:      row.ImageURL,
		Active:        row.Active,
	}
}

type playerInsertModel struct {
	ID            int64      `db:"id"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Position      string     `db:"position"`
	PositionClass string     `db:"position_class"`
	Shoots        string     `db:"shoots"`
	Catches       string     `db:"catches"`
	Height        string     `db:"height"`
	Weight        *int       `db:"weight"`
	BirthDate     *time.Time `db:"birth_date"`
	Hometown      string     `db:"hometown"`
	HomeProvince  string     `db:"home_province"`
	BirthCountry  string     `db:"birth_country"`
	Rookie        bool       `db:"rookie"`
	Veteran       bool       `db:"veteran"`
	ImageURL      string     `db:"image_url"`
	Active        bool       `db:"active"`
}

type playerRefInsertModel struct {
	Source      string `db:"source"`
	ExternalKey string `db:"external_key"`
	PlayerID    int64  `db:"player_id"`
	Confidence  string `db:"confidence"`
}
