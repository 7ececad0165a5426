package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
)

// RankColumns are the dual-track columns shared by every rank table.
type RankColumns struct {
	PermanentScore       int       `bun:"permanent_score,notnull,default:0"`
	PermanentTierID      int       `bun:"permanent_tier_id,notnull,default:0"`
	PermanentSubTierID   int       `bun:"permanent_sub_tier_id,notnull,default:0"`
	LeaderboardScore     int       `bun:"leaderboard_score,notnull,default:0"`
	LeaderboardTierID    int       `bun:"leaderboard_tier_id,notnull,default:0"`
	LeaderboardSubTierID int       `bun:"leaderboard_sub_tier_id,notnull,default:0"`
	LastCalculatedAt     time.Time `bun:"last_calculated_at,nullzero"`
}

type userRankModel struct {
	bun.BaseModel `bun:"table:user_ranks,alias:ur"`
	UserID        string `bun:"user_id,pk"`
	RankColumns
}

type muscleGroupRankModel struct {
	bun.BaseModel `bun:"table:muscle_group_ranks,alias:mgr"`
	UserID        string `bun:"user_id,pk"`
	MuscleGroupID string `bun:"muscle_group_id,pk"`
	Locked        bool   `bun:"locked,notnull"`
	RankColumns
}

type muscleRankModel struct {
	bun.BaseModel `bun:"table:muscle_ranks,alias:mr"`
	UserID        string `bun:"user_id,pk"`
	MuscleID      string `bun:"muscle_id,pk"`
	Locked        bool   `bun:"locked,notnull"`
	RankColumns
}

type exerciseRankModel struct {
	bun.BaseModel `bun:"table:exercise_ranks,alias:er"`
	UserID        string         `bun:"user_id,pk"`
	ExerciseID    string         `bun:"exercise_id,pk"`
	BestSet       *model.BestSet `bun:"best_set,type:jsonb,nullzero"`
	RankColumns
}

type userProfileModel struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`
	UserID        string       `bun:"user_id,pk"`
	Gender        model.Gender `bun:"gender,notnull,default:'male'"`
	Bodyweight    float64      `bun:"bodyweight,notnull,default:0"`
	Premium       bool         `bun:"premium,notnull,default:false"`
}

// rankColumnNames lists the columns refreshed on conflict.
var rankColumnNames = []string{ //nolint:gochecknoglobals // fixed column list
	"permanent_score", "permanent_tier_id", "permanent_sub_tier_id",
	"leaderboard_score", "leaderboard_tier_id", "leaderboard_sub_tier_id",
	"last_calculated_at",
}

func columnsOf(s model.RankState) RankColumns {
	return RankColumns{
		PermanentScore:       s.PermanentScore,
		PermanentTierID:      s.PermanentTier.TierID,
		PermanentSubTierID:   s.PermanentTier.SubTierID,
		LeaderboardScore:     s.LeaderboardScore,
		LeaderboardTierID:    s.LeaderboardTier.TierID,
		LeaderboardSubTierID: s.LeaderboardTier.SubTierID,
		LastCalculatedAt:     s.LastCalculatedAt,
	}
}

func (c RankColumns) state(kind model.EntityKind, userID, entityID string) model.RankState {
	s := model.NewRankState(userID, kind, entityID)
	s.PermanentScore = c.PermanentScore
	s.PermanentTier = model.TierRef{TierID: c.PermanentTierID, SubTierID: c.PermanentSubTierID}
	s.LeaderboardScore = c.LeaderboardScore
	s.LeaderboardTier = model.TierRef{TierID: c.LeaderboardTierID, SubTierID: c.LeaderboardSubTierID}
	s.LastCalculatedAt = c.LastCalculatedAt
	return s
}

func (m userRankModel) state() model.RankState {
	return m.RankColumns.state(model.EntityUser, m.UserID, "")
}

func (m muscleGroupRankModel) state() model.RankState {
	s := m.RankColumns.state(model.EntityMuscleGroup, m.UserID, m.MuscleGroupID)
	s.Locked = m.Locked
	return s
}

func (m muscleRankModel) state() model.RankState {
	s := m.RankColumns.state(model.EntityMuscle, m.UserID, m.MuscleID)
	s.Locked = m.Locked
	return s
}

func (m exerciseRankModel) state() model.RankState {
	s := m.RankColumns.state(model.EntityExercise, m.UserID, m.ExerciseID)
	s.BestSet = m.BestSet
	return s
}

func (m userProfileModel) profile() model.UserProfile {
	return model.UserProfile{UserID: m.UserID, Gender: m.Gender, Bodyweight: m.Bodyweight, Premium: m.Premium}
}
