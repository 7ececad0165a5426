package repository

import (
	"github.com/cespare/xxhash/v2"
)

// Treap-based leaderboard index.
//
// Ordering: score DESC, then userID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the leaderboard
// from best to worst. Priorities come from a hash of the user id, which keeps
// the tree balanced in expectation regardless of score distribution.

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int) *node {
	if n == nil {
		return &node{id: id, score: score, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have a score strictly greater than score.
func countAbove(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// leaderboardIndex keeps users ordered by leaderboard score. Not safe for
// concurrent use; callers hold their own lock.
type leaderboardIndex struct {
	root   *node
	scores map[string]int
}

func newLeaderboardIndex() *leaderboardIndex {
	return &leaderboardIndex{scores: make(map[string]int)}
}

// upsert sets the user's score in O(log n) expected time.
func (l *leaderboardIndex) upsert(id string, score int) {
	if old, ok := l.scores[id]; ok {
		if old == score {
			return
		}
		l.root = deleteNode(l.root, id, old)
	}
	l.scores[id] = score
	l.root = insert(l.root, id, score)
}

// rank returns the competition rank of id: tied scores share a rank and
// the next distinct score skips past them (1, 1, 3).
func (l *leaderboardIndex) rank(id string) (rank, score int, ok bool) {
	score, ok = l.scores[id]
	if !ok {
		return 0, 0, false
	}
	return countAbove(l.root, score) + 1, score, true
}

// top returns up to n (id, score, rank) rows in rank order.
func (l *leaderboardIndex) top(n int) []Entry {
	nodes := make([]*node, 0, min(n, len(l.scores)))
	collectTopN(l.root, n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		out[i] = Entry{UserID: nd.id, Score: nd.score, Rank: i + 1}
		if i > 0 && nodes[i-1].score == nd.score {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out
}

func (l *leaderboardIndex) len() int { return len(l.scores) }
