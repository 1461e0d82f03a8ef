package process

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/coursebuilder/internal/item"
)

// ErrSlugCollision indicates two sibling items share a slug. This pass is the
// sole place slug uniqueness is enforced; a collision aborts the build.
var ErrSlugCollision = errors.New("slug collision")

// SlugCollision scans the realized tree for sibling items sharing a slug.
type SlugCollision struct {
	topLevel map[string]string // slug -> title of first claimant
}

func NewSlugCollision() *SlugCollision {
	return &SlugCollision{topLevel: make(map[string]string)}
}

func (*SlugCollision) Name() string { return "slug-collision" }
func (*SlugCollision) NumRuns() int { return 1 }

func (p *SlugCollision) Visit(it item.Item) error {
	if other, taken := p.topLevel[it.Slug()]; taken {
		return fmt.Errorf("%w: top-level items %q and %q both slug to %q",
			ErrSlugCollision, other, it.Title(), it.Slug())
	}
	p.topLevel[it.Slug()] = it.Title()

	return walk(it, func(parent item.Item) error {
		seen := make(map[string]string, len(parent.Children()))
		for _, child := range parent.Children() {
			if other, taken := seen[child.Slug()]; taken {
				return fmt.Errorf("%w: items %q and %q under %q both slug to %q",
					ErrSlugCollision, other, child.Title(), parent.Title(), child.Slug())
			}
			seen[child.Slug()] = child.Title()
		}
		return nil
	})
}
