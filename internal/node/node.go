// Package node contiene el orquestador de ticks: pide pesos y split a AIFA,
// calcula el composite CMPS y persiste los snapshots del nodo.
//
// Cada paso falla por separado. Una falla de AIFA nunca es fatal: se loguea
// en modo degradado y el snapshot anterior sigue siendo el válido.
package node

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/metrics"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/observability/logger"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/sink"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/snapshot"
)

// Client es lo que el orquestador necesita de AIFA (*aifa.Client lo cumple).
type Client interface {
	RequestWeights(ctx context.Context, t aifa.Telemetry) (cmps.Weights, error)
	RequestTreasurySplit(ctx context.Context, mode string) (aifa.Split, error)
}

// Store persiste los snapshots (*snapshot.Store lo cumple).
type Store interface {
	SaveScoring(rec snapshot.Scoring) error
	SaveSplit(rec snapshot.Split) error
}

type Options struct {
	NodeID string
	BootID string
	Mode   string
	Ticks  int // 0 = sin límite
	Period time.Duration
	Scores cmps.Scores

	// Telemetry arma la telemetría del tick n (1-based). Nil = aifa.DefaultTelemetry.
	Telemetry func(tick int) aifa.Telemetry

	Client     Client
	Store      Store
	Publishers []sink.Publisher

	Now func() time.Time
	Log *zap.Logger
}

type Orchestrator struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Telemetry == nil {
		t := aifa.DefaultTelemetry
		opts.Telemetry = func(int) aifa.Telemetry { return t }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Mode == "" {
		opts.Mode = "neutral"
	}
	l := opts.Log
	if l == nil {
		l = logger.Named("node")
	}
	return &Orchestrator{opts: opts, log: l}
}

// Run ejecuta los ticks configurados. Cancelar ctx corta el loop y devuelve nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	done := 0
	for tick := 1; o.opts.Ticks == 0 || tick <= o.opts.Ticks; tick++ {
		if ctx.Err() != nil {
			break
		}
		o.Tick(ctx, tick)
		done = tick
		metrics.Ticks.Inc()

		if o.opts.Ticks != 0 && tick == o.opts.Ticks {
			break
		}
		if !sleep(ctx, o.opts.Period) {
			break
		}
	}
	o.log.Info("node exiting", logger.Int("ticks", done))
	return nil
}

// Tick corre un único tick completo. Exportado para la CLI y los tests.
func (o *Orchestrator) Tick(ctx context.Context, tick int) {
	ts := o.opts.Now().UTC().Format(time.RFC3339Nano)
	tel := o.opts.Telemetry(tick)
	fields := []zap.Field{logger.Tick(tick)}

	w, err := o.opts.Client.RequestWeights(ctx, tel)
	if err != nil {
		o.log.Warn("aifa weights unavailable, continuing with last known values",
			logger.Tick(tick), logger.Kind(string(aifa.KindOf(err))), logger.Err(err))
	} else {
		score := cmps.Composite(o.opts.Scores, w)
		fields = append(fields, logger.Any("weights", w), logger.Score(score))
		if !cmps.Valid(score) {
			o.log.Warn("non-finite composite score, snapshot skipped", logger.Tick(tick))
		} else {
			metrics.CompositeScore.Set(score)
			rec := o.scoringRecord(ts, tel, w, score)
			o.persist(ctx, snapshot.KindScoring, func() error { return o.opts.Store.SaveScoring(rec) }, rec)
		}
	}

	split, err := o.opts.Client.RequestTreasurySplit(ctx, o.opts.Mode)
	if err != nil {
		o.log.Warn("treasury split unavailable",
			logger.Tick(tick), logger.Mode(o.opts.Mode), logger.Kind(string(aifa.KindOf(err))), logger.Err(err))
	} else {
		fields = append(fields, logger.Mode(o.opts.Mode), logger.Any("split", split))
		rec := snapshot.Split{TS: ts, Node: o.opts.NodeID, BootID: o.opts.BootID, Mode: o.opts.Mode, Split: split}
		o.persist(ctx, snapshot.KindSplit, func() error { return o.opts.Store.SaveSplit(rec) }, rec)
	}

	o.log.Info("tick", fields...)
}

func (o *Orchestrator) scoringRecord(ts string, tel aifa.Telemetry, w cmps.Weights, score float64) snapshot.Scoring {
	return snapshot.Scoring{
		TS:        ts,
		Node:      o.opts.NodeID,
		BootID:    o.opts.BootID,
		Telemetry: tel,
		Weights:   w,
		Score:     score,
	}
}

// persist escribe local y, sólo si salió bien, replica a los sinks.
func (o *Orchestrator) persist(ctx context.Context, kind string, save func() error, rec any) {
	if err := save(); err != nil {
		metrics.SnapshotWrites.WithLabelValues(kind, "error").Inc()
		o.log.Error("snapshot write failed", logger.Op("save"), logger.Kind(kind), logger.Err(err))
		return
	}
	metrics.SnapshotWrites.WithLabelValues(kind, "ok").Inc()

	for _, p := range o.opts.Publishers {
		if err := p.Publish(ctx, o.opts.NodeID, kind, rec); err != nil {
			o.log.Warn("snapshot mirror failed", logger.Op("publish"), logger.Component(p.Name()), logger.Kind(kind), logger.Err(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
