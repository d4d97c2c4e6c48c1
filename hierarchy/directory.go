/*
directory.go - Per-area in-memory view of people

PURPOSE:
  Holds the people and area record for one area, fetched from the data
  source. Downstream components read the filtered PeopleInArea view and
  never the raw fetch result, so a source that over-returns cannot leak
  people across areas.

LIFECYCLE:
  dir := hierarchy.NewDirectory(src, logger)
  dir.Load(ctx, hierarchy.AreaByName("Riverside"))
  ... assignment writes ...
  dir.Refresh(ctx)

  A failed Load clears the cache. Callers must tolerate an empty directory.

CONCURRENCY:
  Area and people are fetched concurrently; if either fails the load fails.
  The cache is guarded by a RWMutex so readers can share a Directory.
*/
package hierarchy

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory is the cached people view for one area.
type Directory struct {
	src    DataSource
	logger *zap.Logger

	mu     sync.RWMutex
	ref    AreaRef
	area   Area
	people []Person
}

// NewDirectory creates an empty directory over src.
func NewDirectory(src DataSource, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{src: src, logger: logger}
}

// Load fetches the area and its people, replacing the cache.
func (d *Directory) Load(ctx context.Context, ref AreaRef) ([]Person, error) {
	var (
		area   Area
		people []Person
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := d.src.GetArea(gctx, ref)
		if err != nil {
			return &FetchError{Op: "area " + ref.String(), Err: err}
		}
		area = a
		return nil
	})
	g.Go(func() error {
		p, err := d.src.ListPeople(gctx, ref)
		if err != nil {
			return &FetchError{Op: "people " + ref.String(), Err: err}
		}
		people = p
		return nil
	})

	if err := g.Wait(); err != nil {
		d.logger.Error("directory load failed", zap.Stringer("area", ref), zap.Error(err))
		d.mu.Lock()
		d.ref, d.area, d.people = ref, Area{}, nil
		d.mu.Unlock()
		return nil, err
	}

	d.mu.Lock()
	d.ref, d.area, d.people = ref, area, people
	d.mu.Unlock()

	d.logger.Debug("directory loaded",
		zap.String("area_id", area.ID),
		zap.String("area_name", area.Name),
		zap.Int("people", len(people)))

	return d.PeopleInArea(area.ID), nil
}

// Refresh re-runs the last Load.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.RLock()
	ref := d.ref
	d.mu.RUnlock()
	if ref.IsZero() {
		return nil
	}
	_, err := d.Load(ctx, ref)
	return err
}

// Area returns the cached area record.
func (d *Directory) Area() Area {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.area
}

// PeopleInArea returns cached people whose AreaID equals areaID, in fetch order.
func (d *Directory) PeopleInArea(areaID string) []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Person, 0, len(d.people))
	for _, p := range d.people {
		if p.AreaID == areaID {
			out = append(out, p)
		}
	}
	return out
}

// People returns the people of the loaded area.
func (d *Directory) People() []Person {
	return d.PeopleInArea(d.Area().ID)
}

// Person looks up a cached person of the loaded area.
func (d *Directory) Person(id string) (Person, bool) {
	for _, p := range d.People() {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// Suggest runs the name matcher over the loaded area.
func (d *Directory) Suggest(query string, exclude map[string]struct{}) []Person {
	return Suggest(query, d.People(), exclude)
}
