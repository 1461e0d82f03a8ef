// Package process implements the build pipeline: an ordered list of
// processors, each visiting every top-level item for one or more runs.
package process

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/metrics"
)

// Processor is one pass-type applied to every item in the course structure.
// Visit receives a top-level item and is responsible for recursing into its
// subtree as needed.
type Processor interface {
	Name() string
	NumRuns() int
	Visit(it item.Item) error
}

// ItemFailure records a processor failing on one item. Non-structural
// failures are logged and the pipeline continues with the next item.
type ItemFailure struct {
	Processor string
	Item      string
	Err       error
}

func (e *ItemFailure) Error() string {
	return fmt.Sprintf("processor %s failed on item %q: %v", e.Processor, e.Item, e.Err)
}

func (e *ItemFailure) Unwrap() error { return e.Err }

// structural reports whether an item failure must abort the whole build:
// bad structure records, unusable sources, missing source files.
func structural(err error) bool {
	return errors.Is(err, item.ErrUnknownItemType) ||
		errors.Is(err, item.ErrUnsupportedSourceType) ||
		errors.Is(err, ErrSlugCollision) ||
		errors.Is(err, fs.ErrNotExist)
}

// Pipeline runs processors in declared order over the top-level structure.
type Pipeline struct {
	processors []Processor
	recorder   metrics.Recorder
}

func NewPipeline(recorder metrics.Recorder) *Pipeline {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Pipeline{recorder: recorder}
}

func (p *Pipeline) Add(proc Processor) *Pipeline {
	p.processors = append(p.processors, proc)
	return p
}

// Run executes every processor over the structure. Each processor performs
// NumRuns full passes; items are visited in declared order on every pass.
func (p *Pipeline) Run(structure []item.Item) error {
	for _, proc := range p.processors {
		slog.Info("process", "name", proc.Name())
		start := time.Now()

		runs := proc.NumRuns()
		if runs < 1 {
			runs = 1
		}
		for n := 0; n < runs; n++ {
			if runs > 1 {
				slog.Info("run", "n", n+1, "of", runs)
			}
			for _, it := range structure {
				p.recorder.IncItemVisit(proc.Name())
				err := proc.Visit(it)
				if err == nil {
					continue
				}
				fail := &ItemFailure{Processor: proc.Name(), Item: it.Title(), Err: err}
				if structural(err) {
					p.recorder.IncItemFailure(proc.Name())
					return fail
				}
				p.recorder.IncItemFailure(proc.Name())
				slog.Warn("item failed, continuing", "processor", proc.Name(), "item", it.Title(), "error", err)
			}
		}
		p.recorder.ObserveProcessorDuration(proc.Name(), time.Since(start))
	}
	return nil
}

// walk applies fn to it and its whole subtree, stopping on the first error.
func walk(it item.Item, fn func(item.Item) error) error {
	if err := fn(it); err != nil {
		return err
	}
	for _, child := range it.Children() {
		if err := walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
