package simulate

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
)

// verify checks the leaderboard ordering and that per-user lookups agree
// with it. It returns one message per inconsistency found.
func (r *Runner) verify(ctx context.Context, board []repository.Entry, athletes []Athlete) []string {
	var issues []string

	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		switch {
		case prev.Score < cur.Score:
			issues = append(issues, fmt.Sprintf("entry %d (%s) scores above entry %d (%s)", i+1, cur.UserID, i, prev.UserID))
		case prev.Score == cur.Score && prev.Rank != cur.Rank:
			issues = append(issues, fmt.Sprintf("tied users %s and %s have ranks %d and %d", prev.UserID, cur.UserID, prev.Rank, cur.Rank))
		case prev.Score > cur.Score && cur.Rank != i+1:
			issues = append(issues, fmt.Sprintf("user %s has rank %d at position %d", cur.UserID, cur.Rank, i+1))
		}
	}

	for _, e := range board {
		got, err := r.svc.Rank(ctx, e.UserID)
		if err != nil {
			issues = append(issues, fmt.Sprintf("rank lookup for %s: %v", e.UserID, err))
			continue
		}
		if got.Rank != e.Rank || got.Score != e.Score {
			issues = append(issues, fmt.Sprintf("user %s: leaderboard says #%d/%d, lookup says #%d/%d",
				e.UserID, e.Rank, e.Score, got.Rank, got.Score))
		}
	}

	if len(board) == 0 {
		return issues
	}
	// Nobody outside the board may outscore its last entry's rank.
	last := board[len(board)-1]
	onBoard := make(map[string]struct{}, len(board))
	for _, e := range board {
		onBoard[e.UserID] = struct{}{}
	}
	for _, a := range athletes {
		if _, ok := onBoard[a.Profile.UserID]; ok {
			continue
		}
		got, err := r.svc.Rank(ctx, a.Profile.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			issues = append(issues, fmt.Sprintf("rank lookup for %s: %v", a.Profile.UserID, err))
			continue
		}
		if got.Score > last.Score {
			issues = append(issues, fmt.Sprintf("user %s scores %d but is missing from the top %d", got.UserID, got.Score, len(board)))
		}
	}
	return issues
}
