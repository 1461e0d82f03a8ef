package process

import (
	"log/slog"

	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/lastbuilt"
)

// LastBuilt compares every item source against the previous build record so
// later processors can skip regenerating fresh output. Purely advisory: on a
// cold build everything is stale and gets processed.
type LastBuilt struct {
	tracker *lastbuilt.Tracker
}

func NewLastBuilt(tracker *lastbuilt.Tracker) *LastBuilt {
	return &LastBuilt{tracker: tracker}
}

func (*LastBuilt) Name() string { return "last-built" }
func (*LastBuilt) NumRuns() int { return 1 }

func (p *LastBuilt) Visit(it item.Item) error {
	return walk(it, func(node item.Item) error {
		stale, err := p.tracker.Check(node.Source())
		if err != nil {
			return err
		}
		if !stale {
			slog.Debug("source unchanged since last build", "source", node.Source())
		}
		return nil
	})
}
