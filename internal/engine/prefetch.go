package engine

import (
	"context"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bianoble/linkset/internal/fileid"
	"github.com/bianoble/linkset/internal/objfile"
	"github.com/bianoble/linkset/internal/searchpath"
)

// prefetched is the read and parse of one command-line file done ahead of
// the drain loop. Fields are valid once done is closed.
type prefetched struct {
	done chan struct{}

	path      string
	id        fileid.ID
	locateErr error

	data    []byte
	format  objfile.Format
	obj     *objfile.Object
	loadErr error
}

// startPrefetch reads and parses command-line files on up to Jobs workers.
// Results are consumed by the drain loop in task order, so the symbol table
// never sees them out of order. The returned func cancels outstanding work
// and waits for every worker.
func (r *run) startPrefetch(ctx context.Context, seeds []Input) func() {
	if r.opts.Jobs < 2 {
		return func() {}
	}
	r.prefetched = make([]*prefetched, len(seeds))
	for i, s := range seeds {
		if !s.Library {
			r.prefetched[i] = &prefetched{done: make(chan struct{})}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	g.SetLimit(r.opts.Jobs)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, s := range seeds {
			p := r.prefetched[i]
			if p == nil {
				continue
			}
			g.Go(func() error {
				defer close(p.done)
				if err := ctx.Err(); err != nil {
					p.locateErr = err
					return nil
				}
				r.load(p, s.Name)
				return nil
			})
		}
	}()

	return func() {
		cancel()
		<-launched
		_ = g.Wait()
	}
}

// load runs on a worker, so it searches the list the engine started with;
// the drain loop retries a miss once sysroot directories were added.
func (r *run) load(p *prefetched, name string) {
	p.path, p.id, p.locateErr = r.locateIn(r.e.Search, name, searchpath.File)
	if p.locateErr != nil {
		return
	}
	if p.data, p.loadErr = afero.ReadFile(r.e.Fs, p.path); p.loadErr != nil {
		return
	}
	if p.format, p.loadErr = r.e.Formats.Detect(p.path, p.data); p.loadErr != nil {
		return
	}
	if of, ok := p.format.(objfile.ObjectFormat); ok {
		p.obj, p.loadErr = of.ParseObject(p.path, p.data)
	}
}

// prefetchedFor waits for and returns the prefetched result of a seed task.
func (r *run) prefetchedFor(t Task) *prefetched {
	if t.Kind != TaskAddFile || t.Seed < 1 || t.Seed > len(r.prefetched) {
		return nil
	}
	p := r.prefetched[t.Seed-1]
	if p == nil {
		return nil
	}
	<-p.done
	return p
}
