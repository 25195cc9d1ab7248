// Package worker renders tile pyramids of one noise preset in parallel, zoom
// level by zoom level.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/texture"
	"github.com/MeKo-Tech/noisefield/internal/tile"
)

// Generator renders one tile and stores it, returning where it went.
// pipeline.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, coords tile.Coords, force bool) (location string, err error)
}

// Job names the preset and map a pool renders. It labels every result and
// progress snapshot.
type Job struct {
	Preset string
	Kind   noise.Kind
	Layer  texture.Layer
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s", j.Preset, j.Layer)
}

// Task is one tile to render.
type Task struct {
	Coords tile.Coords
	Force  bool
}

// Level holds the tasks of a single zoom level.
type Level struct {
	Zoom  uint32
	Tasks []Task
}

// Plan lists the work for a pyramid under root from zoom zMin through zMax.
// Levels are ordered from coarse to fine. Ancestors of root that fall inside
// the zoom range are included so the pyramid can be browsed from its top.
func Plan(root tile.Coords, zMin, zMax uint32, force bool) ([]Level, error) {
	if zMin > zMax {
		return nil, fmt.Errorf("invalid zoom range %d-%d", zMin, zMax)
	}
	if !root.Valid() {
		return nil, fmt.Errorf("invalid root tile %s", root)
	}
	if zMax < root.Z {
		return nil, fmt.Errorf("zoom-max %d is above root tile %s", zMax, root)
	}

	var levels []Level
	ancestors := root.Ancestors()
	for i := len(ancestors) - 1; i >= 0; i-- {
		if a := ancestors[i]; a.Z >= zMin {
			levels = append(levels, Level{Zoom: a.Z, Tasks: []Task{{Coords: a, Force: force}}})
		}
	}

	total := len(levels)
	for z := max(zMin, root.Z); z <= zMax; z++ {
		d := z - root.Z
		if d > 11 {
			total = tile.MaxRangeTiles + 1
			break
		}
		total += 1 << (2 * d)
	}
	if total > tile.MaxRangeTiles {
		return nil, fmt.Errorf("%w: zoom %d-%d under %s", tile.ErrTooManyTiles, zMin, zMax, root)
	}

	for z := max(zMin, root.Z); z <= zMax; z++ {
		var coords []tile.Coords
		var err error
		if root == (tile.Coords{}) {
			coords, err = tile.Range(z, z)
		} else {
			coords, err = root.Subtree(z)
		}
		if err != nil {
			return nil, err
		}

		level := Level{Zoom: z, Tasks: make([]Task, len(coords))}
		for i, c := range coords {
			level.Tasks[i] = Task{Coords: c, Force: force}
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// Count returns the number of tasks across levels.
func Count(levels []Level) int {
	n := 0
	for _, l := range levels {
		n += len(l.Tasks)
	}
	return n
}

// Result is the outcome of one task.
type Result struct {
	Job      Job
	Task     Task
	Location string
	Err      error
	Elapsed  time.Duration
}

// Snapshot describes the pool's state after a tile finished.
type Snapshot struct {
	Job       Job
	Zoom      uint32
	Completed int
	Failed    int
	Total     int
}

// ProgressFunc is called after each task completes, from a single goroutine.
type ProgressFunc func(Snapshot)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Job        Job
	Generator  Generator
	OnProgress ProgressFunc
}

// Pool renders the levels of a plan.
type Pool struct {
	workers    int
	job        Job
	generator  Generator
	onProgress ProgressFunc
}

// New creates a pool. Fewer than one worker means one.
func New(cfg Config) *Pool {
	return &Pool{
		workers:    max(cfg.Workers, 1),
		job:        cfg.Job,
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

// Run renders every level in order. A level starts once the previous one has
// finished. Tasks that start after ctx is cancelled report ctx.Err() without
// being rendered. Results are in completion order.
func (p *Pool) Run(ctx context.Context, levels []Level) []Result {
	total := Count(levels)
	if total == 0 {
		return nil
	}

	results := make([]Result, 0, total)
	failed := 0
	for _, level := range levels {
		out := make(chan Result)
		go p.render(ctx, level.Tasks, out)

		for r := range out {
			results = append(results, r)
			if r.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(Snapshot{
					Job:       p.job,
					Zoom:      level.Zoom,
					Completed: len(results),
					Failed:    failed,
					Total:     total,
				})
			}
		}
	}
	return results
}

// render fans tasks out to the workers and closes out when all are done.
func (p *Pool) render(ctx context.Context, tasks []Task, out chan<- Result) {
	defer close(out)

	next := make(chan Task)
	var wg sync.WaitGroup
	for range min(p.workers, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range next {
				out <- p.renderTask(ctx, task)
			}
		}()
	}

	for _, task := range tasks {
		next <- task
	}
	close(next)
	wg.Wait()
}

func (p *Pool) renderTask(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Job: p.job, Task: task, Err: err}
	}

	start := time.Now()
	loc, err := p.generator.Generate(ctx, task.Coords, task.Force)
	return Result{
		Job:      p.job,
		Task:     task,
		Location: loc,
		Err:      err,
		Elapsed:  time.Since(start),
	}
}
