package item

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
)

// ErrUnknownItemType indicates a structure record whose type discriminant has
// no registered variant. Structural: the build aborts.
var ErrUnknownItemType = errors.New("unknown item type")

type constructor func(ctx Context, rec config.ItemRecord, parent Item) (Item, error)

// registry maps type discriminants to variant constructors. Fixed at compile
// time; unknown discriminants are a hard error. Populated in init to avoid an
// initialization cycle through Load.
var registry map[Type]constructor

func init() {
	registry = map[Type]constructor{
		TypeIntroduction: newIntroduction,
		TypePart:         newPart,
		TypeChapter:      newChapter,
		TypeSlides:       newSlides,
		TypeRecap:        newRecap,
		TypeURL:          newURL,
		TypeStandalone:   newStandalone,
	}
}

// Load instantiates the variant named by the record's type discriminant,
// recursively loading its content records as children.
func Load(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	build, ok := registry[Type(rec.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, rec.Type)
	}
	return build(ctx, rec, parent)
}

// LoadStructure loads the top-level course structure. When no loaded item can
// serve as the index page, a default introduction is synthesized and
// appended, guaranteeing every course a navigable index.
func LoadStructure(ctx Context, recs []config.ItemRecord) ([]Item, error) {
	items := make([]Item, 0, len(recs))
	for _, rec := range recs {
		it, err := Load(ctx, rec, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	hasIndex := false
	for _, it := range items {
		if it.IsIndex() {
			hasIndex = true
			break
		}
	}
	if !hasIndex {
		intro, err := Load(ctx, config.ItemRecord{Type: string(TypeIntroduction)}, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, intro)
	}
	return items, nil
}
