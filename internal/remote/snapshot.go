package remote

import (
	"fmt"

	"postdeck/internal/fragment"
	"postdeck/internal/nav"
)

// Snapshot is what remote clients see of the presenter.
type Snapshot struct {
	PostID      string       `json:"postId"`
	Title       string       `json:"title"`
	Segments    []int        `json:"segments"` // Segment count per slide
	Total       int          `json:"total"`
	Position    nav.Position `json:"position"`
	Fragment    string       `json:"fragment"`
	HasPrevious bool         `json:"hasPrevious"`
	HasNext     bool         `json:"hasNext"`
}

// SnapshotOf captures the controller state. Call it from the goroutine that
// owns the controller.
func SnapshotOf(postID, title string, ctl *nav.Controller) Snapshot {
	d := ctl.State().Deck()
	counts := make([]int, d.Len())
	for i := range counts {
		counts[i] = d.SegmentCount(i)
	}
	pos := ctl.State().Position()
	return Snapshot{
		PostID:      postID,
		Title:       title,
		Segments:    counts,
		Total:       d.Total(),
		Position:    pos,
		Fragment:    fragment.Format(pos.Slide),
		HasPrevious: ctl.HasPrevious(),
		HasNext:     ctl.HasNext(),
	}
}

// Execute runs cmd against ctl. Like SnapshotOf it must run on the
// goroutine that owns the controller.
func Execute(ctl *nav.Controller, cmd Command) (nav.Change, error) {
	switch cmd.Op {
	case OpNext:
		return ctl.Next()
	case OpPrevious:
		return ctl.Previous()
	case OpGoto:
		return ctl.Goto(cmd.Flat)
	default:
		return nav.Change{}, fmt.Errorf("unknown remote op %q", cmd.Op)
	}
}
