package orderbookv1

import (
	"fmt"

	"github.com/google/btree"
)

// ladderDegree is the B-tree degree for the price index. Books rarely hold
// more than a few thousand live levels, so a modest degree keeps nodes
// cache-friendly.
const ladderDegree = 16

// Ladder is one side of the book: an ordered map from price to Level.
// Bids iterate highest price first, asks lowest price first, so Best is
// always the front of the iteration order. Exact float64 equality is the
// level key; prices are never normalized.
type Ladder struct {
	side   Side
	tree   *btree.BTreeG[*Level]
	levels map[float64]*Level
}

// NewLadder creates an empty ladder for the given side.
func NewLadder(side Side) *Ladder {
	less := func(a, b *Level) bool { return a.Price < b.Price }
	if side == Buy {
		less = func(a, b *Level) bool { return a.Price > b.Price }
	}
	return &Ladder{
		side:   side,
		tree:   btree.NewG(ladderDegree, less),
		levels: make(map[float64]*Level),
	}
}

// Side returns which side of the book this ladder holds.
func (l *Ladder) Side() Side {
	return l.side
}

// Get returns the level at the exact price, if present.
func (l *Ladder) Get(price float64) (*Level, bool) {
	level, ok := l.levels[price]
	return level, ok
}

// FindOrCreate returns the level at the exact price, creating and indexing
// an empty one when absent.
func (l *Ladder) FindOrCreate(price float64) *Level {
	if level, ok := l.levels[price]; ok {
		return level
	}
	level := NewLevel(price)
	l.levels[price] = level
	l.tree.ReplaceOrInsert(level)
	return level
}

// Delete removes the level at the given price from the ladder.
func (l *Ladder) Delete(price float64) {
	level, ok := l.levels[price]
	if !ok {
		return
	}
	delete(l.levels, price)
	l.tree.Delete(level)
}

// Best returns the level at the best price on this side: the highest bid
// or the lowest ask.
func (l *Ladder) Best() (*Level, bool) {
	return l.tree.Min()
}

// Len returns the number of live price levels.
func (l *Ladder) Len() int {
	return l.tree.Len()
}

// IsEmpty checks whether the ladder holds no levels.
func (l *Ladder) IsEmpty() bool {
	return l.tree.Len() == 0
}

// Ascend walks the levels best-first until fn returns false.
func (l *Ladder) Ascend(fn func(level *Level) bool) {
	l.tree.Ascend(fn)
}

// TotalVolume sums the cached volume across all levels.
func (l *Ladder) TotalVolume() uint64 {
	var total uint64
	l.tree.Ascend(func(level *Level) bool {
		total += level.TotalVolume
		return true
	})
	return total
}

// Depth returns up to n (price, volume) pairs in best-first order.
func (l *Ladder) Depth(n int) []DepthEntry {
	if n <= 0 {
		return nil
	}
	entries := make([]DepthEntry, 0, min(n, l.tree.Len()))
	l.tree.Ascend(func(level *Level) bool {
		entries = append(entries, DepthEntry{Price: level.Price, Volume: level.TotalVolume})
		return len(entries) < n
	})
	return entries
}

// Validate checks that the tree and the exact-price index agree and that
// no empty level is retained.
func (l *Ladder) Validate() error {
	if l.tree.Len() != len(l.levels) {
		return fmt.Errorf("%s ladder index mismatch: tree has %d levels, map has %d", l.side, l.tree.Len(), len(l.levels))
	}

	var err error
	l.tree.Ascend(func(level *Level) bool {
		if level.IsEmpty() {
			err = fmt.Errorf("empty level retained at %v on %s ladder", level.Price, l.side)
			return false
		}
		if indexed, ok := l.levels[level.Price]; !ok || indexed != level {
			err = fmt.Errorf("level %v on %s ladder missing from exact-price index", level.Price, l.side)
			return false
		}
		if err = level.Validate(); err != nil {
			return false
		}
		return true
	})
	return err
}
