// Package sim runs ensembles of classical trajectories and reduces them to
// ensemble averages.
//
// Trajectories are numbered from seed_start and the number doubles as the
// sampler seed, so a trajectory's initial condition does not depend on which
// batch or worker runs it. Each batch is recorded into its own
// [aggregate.Data] with weight equal to the batch size, and the batches are
// merged in order. Serial and parallel runs therefore produce the same
// averages.
package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/qclab/internal/aggregate"
	"github.com/san-kum/qclab/internal/config"
	"github.com/san-kum/qclab/internal/constants"
	"github.com/san-kum/qclab/internal/dynamo"
	"github.com/san-kum/qclab/internal/ingredient"
	"github.com/san-kum/qclab/internal/physics"
	"github.com/san-kum/qclab/internal/sampler"
)

// Output keys recorded at every collected time point.
const (
	EnergyKey = "classical_energy"
	ZKey      = "z"
	QKey      = "q"
	PKey      = "p"
	TimeKey   = "t"
)

type Ensemble struct {
	cfg     *config.Config
	model   physics.Classical
	sampler sampler.Sampler
	logger  *zap.Logger
}

type Option func(*Ensemble)

func WithLogger(l *zap.Logger) Option {
	return func(e *Ensemble) { e.logger = l }
}

// WithSampler overrides the sampler named in the config.
func WithSampler(s sampler.Sampler) Option {
	return func(e *Ensemble) { e.sampler = s }
}

func New(cfg *config.Config, opts ...Option) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	model, err := physics.LookupClassical(cfg.Model)
	if err != nil {
		return nil, err
	}
	e := &Ensemble{cfg: cfg, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampler == nil {
		e.sampler, err = sampler.NewRegistry().Get(cfg.Sampler)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Batches splits the trajectory seeds seed_start..seed_start+num_trajs-1
// into chunks of at most batch_size.
func (e *Ensemble) Batches() [][]int64 {
	var out [][]int64
	for start := 0; start < e.cfg.NumTrajs; start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, e.cfg.NumTrajs)
		seeds := make([]int64, 0, end-start)
		for s := start; s < end; s++ {
			seeds = append(seeds, e.cfg.SeedStart+int64(s))
		}
		out = append(out, seeds)
	}
	return out
}

func (e *Ensemble) newModel() *physics.Model {
	c := e.cfg.ModelConstants()
	m := physics.NewModel(c)
	c.MarkReady()
	return m
}

// RunSerial runs every batch in order on a single model.
func (e *Ensemble) RunSerial(ctx context.Context) (*aggregate.Data, error) {
	start := time.Now()
	batches := e.Batches()
	e.logger.Info("ensemble started",
		zap.String("model", e.model.Name),
		zap.Int("trajectories", e.cfg.NumTrajs),
		zap.Int("batches", len(batches)))

	m := e.newModel()
	results := make([]*aggregate.Data, len(batches))
	for i, seeds := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := e.runBatch(m, i, seeds)
		if err != nil {
			return nil, err
		}
		results[i] = d
	}
	return e.combine(results, start)
}

// RunParallel distributes batches over workers goroutines, each owning its
// own model. The first failing batch cancels the rest.
func (e *Ensemble) RunParallel(ctx context.Context, workers int) (*aggregate.Data, error) {
	if workers <= 1 {
		return e.RunSerial(ctx)
	}
	start := time.Now()
	batches := e.Batches()
	e.logger.Info("ensemble started",
		zap.String("model", e.model.Name),
		zap.Int("trajectories", e.cfg.NumTrajs),
		zap.Int("batches", len(batches)),
		zap.Int("workers", workers))

	results := make([]*aggregate.Data, len(batches))
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range batches {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			m := e.newModel()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				d, err := e.runBatch(m, i, batches[i])
				if err != nil {
					return err
				}
				results[i] = d
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e.combine(results, start)
}

func (e *Ensemble) combine(results []*aggregate.Data, start time.Time) (*aggregate.Data, error) {
	data, err := aggregate.MergeAll(results...)
	if err != nil {
		return nil, err
	}
	data.Values[TimeKey] = e.cfg.OutputTimes()
	e.logger.Info("ensemble finished",
		zap.Int("trajectories", len(data.Seeds)),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

type batchRun struct {
	model  *physics.Model
	params ingredient.SeedList
	mass   []float64
	weight []float64
}

func (b *batchRun) kwargs(z *dynamo.Tensor) ingredient.Kwargs {
	return ingredient.Kwargs{"z": z, ingredient.BatchSizeKey: len(b.params)}
}

func (e *Ensemble) runBatch(m *physics.Model, index int, seeds []int64) (*aggregate.Data, error) {
	fail := func(step int, err error) error {
		return &dynamo.SimulationError{Batch: index, Step: step, Time: float64(step) * e.cfg.Dt, Wrapped: err}
	}

	c := m.Constants()
	n, err := c.Int(constants.NumClassicalCoordinates)
	if err != nil {
		return nil, fail(0, err)
	}
	b := &batchRun{model: m, params: ingredient.SeedList(seeds)}
	if b.mass, err = c.Floats(constants.ClassicalMass, n); err != nil {
		return nil, fail(0, err)
	}
	if b.weight, err = c.Floats(constants.ClassicalWeight, n); err != nil {
		return nil, fail(0, err)
	}
	z, err := e.sampler.Sample(seeds, c)
	if err != nil {
		return nil, fail(0, err)
	}

	deriv := func(z *dynamo.Tensor) (*dynamo.Tensor, error) {
		grad, err := e.model.Gradient(m, b.params, b.kwargs(z))
		if err != nil {
			return nil, err
		}
		return grad.Scale(-1i), nil
	}

	numSteps, numOut := e.cfg.NumSteps(), e.cfg.NumOutputs()
	every := e.cfg.DtCollectN
	data := aggregate.New(seeds...)
	integrator := NewRK4()

	for step := 0; ; step++ {
		if !z.IsValid() {
			return nil, fail(step, dynamo.ErrInvalidState)
		}
		if step%every == 0 {
			if err := e.record(data, b, step/every, numOut, z); err != nil {
				return nil, fail(step, err)
			}
		}
		if step == numSteps {
			break
		}
		if z, err = integrator.Step(deriv, z, e.cfg.Dt); err != nil {
			return nil, fail(step, err)
		}
	}

	e.logger.Debug("batch finished", zap.Int("batch", index), zap.Int("trajectories", len(seeds)))
	return data, nil
}

func (e *Ensemble) record(data *aggregate.Data, b *batchRun, idx, numOut int, z *dynamo.Tensor) error {
	energy, err := e.model.Energy(b.model, b.params, b.kwargs(z))
	if err != nil {
		return err
	}
	q, p, err := physics.ToRealBatch(z, b.mass, b.weight)
	if err != nil {
		return err
	}
	outputs := map[string]*dynamo.Tensor{
		EnergyKey: energy,
		ZKey:      z,
		QKey:      q,
		PKey:      p,
	}
	return data.RecordStep(idx, numOut, outputs, float64(len(b.params)))
}
