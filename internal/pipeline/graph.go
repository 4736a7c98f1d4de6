// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/synthesis-engine/internal/metrics"
)

var (
	ErrNilStage          = errors.New("pipeline: nil stage")
	ErrDuplicateStage    = errors.New("pipeline: duplicate stage")
	ErrUnknownDependency = errors.New("pipeline: unknown dependency")
	ErrCycle             = errors.New("pipeline: dependency cycle")
	ErrEmptyGraph        = errors.New("pipeline: graph has no stages")
	ErrStagePanic        = errors.New("pipeline: stage panicked")
)

// StageError names the stage a build error belongs to.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Stage is one unit of work in the graph. Run reads a snapshot of the
// state and returns the fields it produced. Run returns an error only to
// abort the query; recoverable failures go into Update.Errors.
type Stage interface {
	Name() string
	Dependencies() []string
	Run(ctx context.Context, st QueryState) (Update, error)
}

// StageFunc is the body of a stage built with NewStage.
type StageFunc func(ctx context.Context, st QueryState) (Update, error)

type funcStage struct {
	name string
	deps []string
	fn   StageFunc
}

// NewStage wraps fn as a Stage.
func NewStage(name string, deps []string, fn StageFunc) Stage {
	return &funcStage{name: name, deps: deps, fn: fn}
}

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Dependencies() []string {
	if s.deps == nil {
		return []string{}
	}
	return s.deps
}

func (s *funcStage) Run(ctx context.Context, st QueryState) (Update, error) {
	return s.fn(ctx, st)
}

// Options configures observation of a Graph.
type Options struct {
	// Logger is used for stage lifecycle logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics receives stage durations and errors. Nil disables them.
	Metrics *metrics.Metrics
}

// Builder collects stages and validates their dependency graph.
type Builder struct {
	opts   Options
	stages map[string]Stage
	order  []string
	errs   []error
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, stages: make(map[string]Stage)}
}

// Add registers s. Errors are reported by Build.
func (b *Builder) Add(s Stage) *Builder {
	if s == nil {
		b.errs = append(b.errs, ErrNilStage)
		return b
	}
	name := s.Name()
	if _, exists := b.stages[name]; exists {
		b.errs = append(b.errs, &StageError{Stage: name, Err: ErrDuplicateStage})
		return b
	}
	b.stages[name] = s
	b.order = append(b.order, name)
	return b
}

// Build checks that every dependency exists and that there are no cycles,
// then groups stages into waves: each wave holds the stages whose
// dependencies all sit in earlier waves. Within a wave stages keep the
// order they were added in.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if len(b.stages) == 0 {
		return nil, ErrEmptyGraph
	}
	for _, name := range b.order {
		for _, dep := range b.stages[name].Dependencies() {
			if _, ok := b.stages[dep]; !ok {
				return nil, &StageError{Stage: name, Err: fmt.Errorf("%w %q", ErrUnknownDependency, dep)}
			}
		}
	}
	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	level := make(map[string]int, len(b.order))
	var depth func(name string) int
	depth = func(name string) int {
		if l, ok := level[name]; ok {
			return l
		}
		l := 0
		for _, dep := range b.stages[name].Dependencies() {
			if d := depth(dep) + 1; d > l {
				l = d
			}
		}
		level[name] = l
		return l
	}

	var waves [][]Stage
	for _, name := range b.order {
		l := depth(name)
		for len(waves) <= l {
			waves = append(waves, nil)
		}
		waves[l] = append(waves[l], b.stages[name])
	}

	logger := b.opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		waves:   waves,
		logger:  logger.With(slog.String("component", "pipeline")),
		metrics: b.opts.Metrics,
	}, nil
}

func (b *Builder) detectCycles() error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string

	var dfs func(name string) error
	dfs = func(name string) error {
		visited[name] = true
		onPath[name] = true
		path = append(path, name)
		for _, dep := range b.stages[name].Dependencies() {
			if onPath[dep] {
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), dep)
				return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
			}
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		onPath[name] = false
		return nil
	}

	for _, name := range b.order {
		if !visited[name] {
			if err := dfs(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Graph is a validated, executable stage graph. A Graph holds no query
// state and may be run more than once.
type Graph struct {
	waves   [][]Stage
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Waves returns the stage names of each wave in execution order.
func (g *Graph) Waves() [][]string {
	out := make([][]string, len(g.waves))
	for i, wave := range g.waves {
		for _, s := range wave {
			out[i] = append(out[i], s.Name())
		}
	}
	return out
}

// Run executes every wave against st. Stages within a wave run
// concurrently on the same snapshot; the next wave starts only after all
// of them return. Updates are merged in wave order, so the result does not
// depend on which stage finished first. A fatal stage error stops the run
// after the updates of its wave are merged.
func (g *Graph) Run(ctx context.Context, st *QueryState) error {
	for _, wave := range g.waves {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap := st.snapshot()
		updates := make([]Update, len(wave))
		eg, egctx := errgroup.WithContext(ctx)
		for i, s := range wave {
			eg.Go(func() error {
				u, err := g.runStage(egctx, s, snap)
				updates[i] = u
				return err
			})
		}
		err := eg.Wait()
		for _, u := range updates {
			st.Apply(u)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) runStage(ctx context.Context, s Stage, st QueryState) (u Update, err error) {
	name := s.Name()
	logger := g.logger.With(slog.String("stage", name))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			g.metrics.IncError(name, kindPanic)
			u = Update{Errors: []string{fmt.Sprintf("%s: %v: %v", name, ErrStagePanic, r)}}
			err = nil
		}
		d := time.Since(start)
		g.metrics.ObserveStage(name, d)
		logger.Debug("stage finished", slog.Duration("duration", d), slog.Int("errors", len(u.Errors)))
	}()

	logger.Debug("stage started")
	u, err = s.Run(ctx, st)
	if err == nil {
		return u, nil
	}
	if aborts(ctx, err) {
		logger.Error("stage aborted query", slog.Any("error", err))
		return u, err
	}

	// A stage that leaked a recoverable error degrades to a neutral result.
	kind := errorKind(err)
	logger.Warn("stage failed", slog.String("kind", kind), slog.Any("error", err))
	g.metrics.IncError(name, kind)
	return Update{Errors: []string{name + ": " + err.Error()}}, nil
}
