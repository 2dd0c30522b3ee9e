// internal/storage/store.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

// Store is the persistence gateway: one logical table per sensor kind,
// inserts for normal and critical readings, opportunistic retention
// pruning and the per-user history queries the dashboard consumes.
type Store struct {
	db           *sql.DB
	log          *zap.Logger
	retentionCap int
	pruneBatch   int
	pruneChance  float64
}

func NewStore(db *sql.DB, log *zap.Logger, retentionCap, pruneBatch int, pruneChance float64) *Store {
	return &Store{
		db:           db,
		log:          log,
		retentionCap: retentionCap,
		pruneBatch:   pruneBatch,
		pruneChance:  pruneChance,
	}
}

func tableFor(kind data.SensorKind) (string, bool) {
	switch kind {
	case data.KindTemperature:
		return "lecturas_temperatura", true
	case data.KindHumidity:
		return "lecturas_humedad", true
	case data.KindUVLight:
		return "lecturas_uv", true
	default:
		return "", false
	}
}

// Insert persists one reading into its kind's table. The critical flag
// comes from the reading itself, so the same path serves buffered
// normal rows and immediate critical writes.
func (s *Store) Insert(ctx context.Context, r data.Reading) error {
	table, ok := tableFor(r.Kind)
	if !ok {
		return fmt.Errorf("no table for sensor kind %q", r.Kind)
	}

	var err error
	switch r.Kind {
	case data.KindTemperature:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO lecturas_temperatura (user_id, valor, zona, es_critico, fecha) VALUES ($1, $2, $3, $4, $5)`,
			r.UserID, r.Value, string(r.Zone), r.IsCritical, r.Timestamp)
	case data.KindHumidity:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO lecturas_humedad (user_id, valor, en_muda, es_critico, fecha) VALUES ($1, $2, $3, $4, $5)`,
			r.UserID, r.Value, r.IsShedding, r.IsCritical, r.Timestamp)
	case data.KindUVLight:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO lecturas_uv (user_id, valor, es_critico, fecha) VALUES ($1, $2, $3, $4)`,
			r.UserID, r.Value, r.IsCritical, r.Timestamp)
	}
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}

	s.maybePrune(ctx, r.Kind)
	return nil
}

// maybePrune runs a prune with low probability per insert. Opportunistic
// on purpose: the cap may be transiently exceeded by a bounded amount,
// in exchange for not counting rows on every write.
func (s *Store) maybePrune(ctx context.Context, kind data.SensorKind) {
	if rand.Float64() >= s.pruneChance {
		return
	}
	if err := s.Prune(ctx, kind); err != nil {
		s.log.Warn("opportunistic prune failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// Prune deletes the oldest rows of a kind's table beyond the retention
// cap, in a single batch ordered by timestamp ascending. A failed prune
// is skipped until the next opportunity, never retried in a loop.
func (s *Store) Prune(ctx context.Context, kind data.SensorKind) error {
	table, ok := tableFor(kind)
	if !ok {
		return fmt.Errorf("no table for sensor kind %q", kind)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		return fmt.Errorf("counting %s: %w", table, err)
	}
	excess := count - s.retentionCap
	if excess <= 0 {
		return nil
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s ORDER BY fecha ASC LIMIT $1)`, table, table), excess)
	if err != nil {
		return fmt.Errorf("pruning %s: %w", table, err)
	}
	if deleted, err := res.RowsAffected(); err == nil {
		s.log.Info("pruned old readings", zap.String("table", table), zap.Int64("deleted", deleted))
	}
	return nil
}

// PruneAll prunes every reading table. Used by the periodic job; each
// table's failure is logged independently so one bad table does not
// starve the rest.
func (s *Store) PruneAll(ctx context.Context) {
	for _, kind := range []data.SensorKind{data.KindTemperature, data.KindHumidity, data.KindUVLight} {
		if err := s.Prune(ctx, kind); err != nil {
			s.log.Warn("periodic prune failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

// History returns a user's most recent readings of one kind, newest
// first, capped at limit.
func (s *Store) History(ctx context.Context, kind data.SensorKind, userID, limit int) ([]data.Reading, error) {
	table, ok := tableFor(kind)
	if !ok {
		return nil, fmt.Errorf("no table for sensor kind %q", kind)
	}

	var query string
	switch kind {
	case data.KindTemperature:
		query = `SELECT valor, zona, es_critico, fecha FROM lecturas_temperatura WHERE user_id = $1 ORDER BY fecha DESC LIMIT $2`
	case data.KindHumidity:
		query = `SELECT valor, en_muda, es_critico, fecha FROM lecturas_humedad WHERE user_id = $1 ORDER BY fecha DESC LIMIT $2`
	case data.KindUVLight:
		query = `SELECT valor, es_critico, fecha FROM lecturas_uv WHERE user_id = $1 ORDER BY fecha DESC LIMIT $2`
	}

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s history: %w", table, err)
	}
	defer rows.Close()

	var readings []data.Reading
	for rows.Next() {
		r := data.Reading{Kind: kind, UserID: userID}
		switch kind {
		case data.KindTemperature:
			var zone string
			if err := rows.Scan(&r.Value, &zone, &r.IsCritical, &r.Timestamp); err != nil {
				return nil, err
			}
			r.Zone = data.Zone(zone)
		case data.KindHumidity:
			if err := rows.Scan(&r.Value, &r.IsShedding, &r.IsCritical, &r.Timestamp); err != nil {
				return nil, err
			}
		case data.KindUVLight:
			if err := rows.Scan(&r.Value, &r.IsCritical, &r.Timestamp); err != nil {
				return nil, err
			}
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// ContactAddress resolves a user's registered email. Used only by the
// alert dispatcher.
func (s *Store) ContactAddress(ctx context.Context, userID int) (string, error) {
	var address string
	err := s.db.QueryRowContext(ctx,
		`SELECT correo FROM usuarios WHERE id = $1`, userID).Scan(&address)
	if err != nil {
		return "", fmt.Errorf("resolving contact address for user %d: %w", userID, err)
	}
	return address, nil
}

// Credentials returns a user's id and bcrypt password hash by name.
func (s *Store) Credentials(ctx context.Context, username string) (int, string, error) {
	var id int
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, contrasena FROM usuarios WHERE nombre = $1`, username).Scan(&id, &hash)
	if err != nil {
		return 0, "", fmt.Errorf("looking up user %q: %w", username, err)
	}
	return id, hash, nil
}
