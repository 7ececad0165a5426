package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/tracing"
)

const storePostgres = "postgres"

// BunStore persists ranks and profiles in Postgres through bun.
// It implements Store, ProfileSource and Leaderboard.
type BunStore struct {
	db     *bun.DB
	logger logger.Logger
}

var (
	_ Store         = (*BunStore)(nil)
	_ ProfileSource = (*BunStore)(nil)
	_ Leaderboard   = (*BunStore)(nil)
)

// OpenPostgres opens a bun handle over the pgdriver connector.
func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewBunStore wraps an open database handle.
func NewBunStore(db *bun.DB, opts ...BunOption) *BunStore {
	s := &BunStore{db: db, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying database.
func (s *BunStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the rank and profile tables when missing.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*userRankModel)(nil),
		(*muscleGroupRankModel)(nil),
		(*muscleRankModel)(nil),
		(*exerciseRankModel)(nil),
		(*userProfileModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("repository.EnsureSchema: %w", err)
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*userRankModel)(nil)).
		Index("user_ranks_leaderboard_idx").
		IfNotExists().
		ColumnExpr("leaderboard_score DESC, user_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.EnsureSchema: %w", err)
	}
	s.logger.Info(ctx, "rank schema ready")
	return nil
}

// LoadRanks implements Store.
func (s *BunStore) LoadRanks(ctx context.Context, userID string) (_ model.UserRanks, err error) {
	ctx, span := tracing.Start(ctx, "repository.LoadRanks")
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation(storePostgres, "load", time.Since(start), err)
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	ranks := model.NewUserRanks()

	var user userRankModel
	err = s.db.NewSelect().Model(&user).Where("user_id = ?", userID).Scan(ctx)
	switch {
	case err == nil:
		ranks.Put(user.state())
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		return model.UserRanks{}, fmt.Errorf("repository.LoadRanks: user: %w", err)
	}

	var groups []muscleGroupRankModel
	if err = s.db.NewSelect().Model(&groups).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return model.UserRanks{}, fmt.Errorf("repository.LoadRanks: muscle groups: %w", err)
	}
	for _, g := range groups {
		ranks.Put(g.state())
	}

	var muscles []muscleRankModel
	if err = s.db.NewSelect().Model(&muscles).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return model.UserRanks{}, fmt.Errorf("repository.LoadRanks: muscles: %w", err)
	}
	for _, m := range muscles {
		ranks.Put(m.state())
	}

	var exercises []exerciseRankModel
	if err = s.db.NewSelect().Model(&exercises).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return model.UserRanks{}, fmt.Errorf("repository.LoadRanks: exercises: %w", err)
	}
	for _, e := range exercises {
		ranks.Put(e.state())
	}

	return ranks, nil
}

// SaveRanks implements Store. All four tables are written in one transaction.
func (s *BunStore) SaveRanks(ctx context.Context, userID string, payload ranking.Payload) (err error) {
	if payload.Empty() {
		return nil
	}
	ctx, span := tracing.Start(ctx, "repository.SaveRanks")
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation(storePostgres, "save", time.Since(start), err)
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("rows", payload.Len()))

	for _, row := range payload.Rows() {
		if row.UserID != userID {
			return fmt.Errorf("%w: row for user %q in batch of %q", ErrPersist, row.UserID, userID)
		}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if payload.User != nil {
			row := &userRankModel{UserID: userID, RankColumns: columnsOf(*payload.User)}
			if _, err := upsert(tx.NewInsert().Model(row), "user_id").Exec(ctx); err != nil {
				return fmt.Errorf("user: %w", err)
			}
		}
		if len(payload.MuscleGroups) > 0 {
			rows := make([]muscleGroupRankModel, len(payload.MuscleGroups))
			for i, st := range payload.MuscleGroups {
				rows[i] = muscleGroupRankModel{UserID: userID, MuscleGroupID: st.EntityID, Locked: st.Locked, RankColumns: columnsOf(st)}
			}
			if _, err := upsert(tx.NewInsert().Model(&rows), "user_id, muscle_group_id", "locked").Exec(ctx); err != nil {
				return fmt.Errorf("muscle groups: %w", err)
			}
		}
		if len(payload.Muscles) > 0 {
			rows := make([]muscleRankModel, len(payload.Muscles))
			for i, st := range payload.Muscles {
				rows[i] = muscleRankModel{UserID: userID, MuscleID: st.EntityID, Locked: st.Locked, RankColumns: columnsOf(st)}
			}
			if _, err := upsert(tx.NewInsert().Model(&rows), "user_id, muscle_id", "locked").Exec(ctx); err != nil {
				return fmt.Errorf("muscles: %w", err)
			}
		}
		if len(payload.Exercises) > 0 {
			rows := make([]exerciseRankModel, len(payload.Exercises))
			for i, st := range payload.Exercises {
				rows[i] = exerciseRankModel{UserID: userID, ExerciseID: st.EntityID, BestSet: st.BestSet, RankColumns: columnsOf(st)}
			}
			// A synced row carries no best set; keep the stored one.
			q := upsert(tx.NewInsert().Model(&rows), "user_id, exercise_id").
				Set("best_set = COALESCE(EXCLUDED.best_set, er.best_set)")
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("exercises: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// upsert turns an insert into an upsert on the given key refreshing the rank columns.
func upsert(q *bun.InsertQuery, key string, extra ...string) *bun.InsertQuery {
	q = q.On(fmt.Sprintf("CONFLICT (%s) DO UPDATE", key))
	for _, col := range append(rankColumnNames, extra...) {
		q = q.Set(fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return q
}

// PutProfile upserts a user profile.
func (s *BunStore) PutProfile(ctx context.Context, p model.UserProfile) error {
	row := &userProfileModel{UserID: p.UserID, Gender: p.Gender, Bodyweight: p.Bodyweight, Premium: p.Premium}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("gender = EXCLUDED.gender").
		Set("bodyweight = EXCLUDED.bodyweight").
		Set("premium = EXCLUDED.premium").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.PutProfile: %w", err)
	}
	return nil
}

// Profile implements ProfileSource.
func (s *BunStore) Profile(ctx context.Context, userID string) (_ model.UserProfile, err error) {
	ctx, span := tracing.Start(ctx, "repository.Profile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var row userProfileModel
	err = s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProfile{}, fmt.Errorf("%w: profile %q", ErrNotFound, userID)
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("repository.Profile: %w", err)
	}
	return row.profile(), nil
}

// TopN implements Leaderboard.
func (s *BunStore) TopN(ctx context.Context, n int) (_ []Entry, err error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ctx, span := tracing.Start(ctx, "repository.TopN")
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation(storePostgres, "top_n", time.Since(start), err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var rows []userRankModel
	err = s.db.NewSelect().Model(&rows).
		OrderExpr("leaderboard_score DESC, user_id ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.TopN: %w", err)
	}

	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = Entry{
			Rank:   i + 1,
			UserID: r.UserID,
			Score:  r.LeaderboardScore,
			Tier:   model.TierRef{TierID: r.LeaderboardTierID, SubTierID: r.LeaderboardSubTierID},
		}
		if i > 0 && rows[i-1].LeaderboardScore == r.LeaderboardScore {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out, nil
}

// Rank implements Leaderboard.
func (s *BunStore) Rank(ctx context.Context, userID string) (_ Entry, err error) {
	ctx, span := tracing.Start(ctx, "repository.Rank")
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation(storePostgres, "rank", time.Since(start), err)
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var row userRankModel
	err = s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: user %q not ranked", ErrNotFound, userID)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("repository.Rank: %w", err)
	}

	above, err := s.db.NewSelect().Model((*userRankModel)(nil)).
		Where("leaderboard_score > ?", row.LeaderboardScore).
		Count(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("repository.Rank: %w", err)
	}
	return Entry{
		Rank:   above + 1,
		UserID: userID,
		Score:  row.LeaderboardScore,
		Tier:   model.TierRef{TierID: row.LeaderboardTierID, SubTierID: row.LeaderboardSubTierID},
	}, nil
}

// Count implements Leaderboard. Query failures are logged and count as zero.
func (s *BunStore) Count(ctx context.Context) int {
	n, err := s.db.NewSelect().Model((*userRankModel)(nil)).Count(ctx)
	if err != nil {
		s.logger.Error(ctx, "count leaderboard users", logger.Error(err))
		return 0
	}
	return n
}
