package scheduler

import (
	"github.com/google/btree"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
)

// bucket holds the pending items sharing one duration, oldest first.
type bucket struct {
	duration int64
	items    []*models.WorkItem
}

// durationIndex is an ordered multi-map from duration (ms) to pending items.
type durationIndex struct {
	tree  *btree.BTreeG[*bucket]
	count int
}

func newDurationIndex() *durationIndex {
	return &durationIndex{
		tree: btree.NewG(8, func(a, b *bucket) bool {
			return a.duration < b.duration
		}),
	}
}

func (x *durationIndex) insert(item *models.WorkItem) {
	key := &bucket{duration: item.Duration.Milliseconds()}
	if b, ok := x.tree.Get(key); ok {
		b.items = append(b.items, item)
	} else {
		key.items = []*models.WorkItem{item}
		x.tree.ReplaceOrInsert(key)
	}
	x.count++
}

// floor returns the greatest duration present that is <= maxDuration.
func (x *durationIndex) floor(maxDuration int64) (int64, bool) {
	var found *bucket
	x.tree.DescendLessOrEqual(&bucket{duration: maxDuration}, func(b *bucket) bool {
		found = b
		return false
	})
	if found == nil {
		return 0, false
	}
	return found.duration, true
}

// takeOneOf removes and returns the earliest inserted item with exactly the
// given duration, or nil if there is none.
func (x *durationIndex) takeOneOf(duration int64) *models.WorkItem {
	key := &bucket{duration: duration}
	b, ok := x.tree.Get(key)
	if !ok {
		return nil
	}
	item := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]
	if len(b.items) == 0 {
		x.tree.Delete(key)
	}
	x.count--
	return item
}

func (x *durationIndex) isEmpty() bool {
	return x.count == 0
}

func (x *durationIndex) len() int {
	return x.count
}
