package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Viskores/viskores-sub000/internal/array"
	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/errchan"
	"github.com/Viskores/viskores-sub000/internal/model"
	"github.com/Viskores/viskores-sub000/internal/telemetry"
	"github.com/Viskores/viskores-sub000/internal/tracker"
	"github.com/Viskores/viskores-sub000/internal/worklet"
)

// Journal records finished dispatches.
type Journal interface {
	RecordDispatch(ctx context.Context, d *model.Dispatch) error
}

// Dispatcher invokes worklets on the devices of a tracker. It is safe for
// concurrent use as long as concurrent dispatches do not share worklets or
// output arrays.
type Dispatcher struct {
	tracker     *tracker.Tracker
	logger      *slog.Logger
	journal     Journal
	tracer      trace.Tracer
	events      *EventBroker
	errCapacity int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithJournal records every dispatch in j.
func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

// WithTracer sets the tracer used for dispatch spans. The default is the
// globally registered tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithEvents publishes lifecycle events to b instead of a private broker.
func WithEvents(b *EventBroker) Option {
	return func(d *Dispatcher) { d.events = b }
}

// WithErrorCapacity sets the byte capacity of the per-dispatch error buffer.
func WithErrorCapacity(n int) Option {
	return func(d *Dispatcher) { d.errCapacity = n }
}

// New creates a dispatcher over t.
func New(t *tracker.Tracker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tracker:     t,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:      telemetry.Tracer(),
		events:      NewEventBroker(),
		errCapacity: errchan.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tracker returns the dispatcher's device tracker.
func (d *Dispatcher) Tracker() *tracker.Tracker { return d.tracker }

// Events returns the broker lifecycle events are published to.
func (d *Dispatcher) Events() *EventBroker { return d.events }

// InvokeOption configures one dispatch.
type InvokeOption func(*invokeConfig)

type invokeConfig struct {
	device device.ID
}

// WithDevice runs the dispatch on id only. device.Any, the default, picks
// the best enabled device and falls back to the next one when a device turns
// out to be unavailable during setup.
func WithDevice(id device.ID) InvokeOption {
	return func(c *invokeConfig) { c.device = id }
}

// Result describes a successful dispatch.
type Result struct {
	ID           string
	Worklet      string
	Requested    device.ID
	Device       device.ID
	InputDomain  int
	OutputDomain int
	Tiles        int
	Fallbacks    int
	Duration     time.Duration
}

// Invoke runs w to completion. When it returns nil every output argument is
// valid on the device the dispatch ran on.
func (d *Dispatcher) Invoke(ctx context.Context, w *worklet.Worklet, opts ...InvokeOption) (*Result, error) {
	cfg := invokeConfig{device: device.Any}
	for _, opt := range opts {
		opt(&cfg)
	}

	res := &Result{ID: model.NewID(), Requested: cfg.device}
	if w != nil {
		res.Worklet = w.Name
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.invoke", trace.WithAttributes(
		attribute.String("dispatch.id", res.ID),
		attribute.String("dispatch.worklet", res.Worklet),
		attribute.String("device.requested", cfg.device.String()),
	))
	defer span.End()

	d.logger.Debug("dispatch started", "dispatch_id", res.ID, "worklet", res.Worklet, "device", cfg.device.String())
	d.publish(EventStarted, res, "")

	start := time.Now()
	err := d.invoke(ctx, w, cfg, res)
	res.Duration = time.Since(start)

	d.finish(ctx, span, res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) invoke(ctx context.Context, w *worklet.Worklet, cfg invokeConfig, res *Result) error {
	if err := w.Validate(); err != nil {
		return &SetupError{Worklet: res.Worklet, Err: err}
	}
	dom, err := w.DomainArg()
	if err != nil {
		return &SetupError{Worklet: w.Name, Err: err}
	}
	inputSize, err := dom.DomainSize()
	if err != nil {
		return &SetupError{Worklet: w.Name, Err: fmt.Errorf("input domain: %w", err)}
	}
	res.InputDomain = inputSize

	candidates, err := d.candidates(cfg.device)
	if err != nil {
		return &SetupError{Worklet: w.Name, Device: cfg.device, Err: err}
	}

	var lastErr error
	for i, dev := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			from := candidates[i-1].ID().String()
			res.Fallbacks++
			telemetry.DeviceFallbacksTotal.WithLabelValues(from, dev.ID().String()).Inc()
			d.logger.Warn("dispatch falling back", "dispatch_id", res.ID, "worklet", w.Name, "from", from, "to", dev.ID().String(), "error", lastErr)
			d.publish(EventFallback, res, fmt.Sprintf("%s -> %s: %v", from, dev.ID(), lastErr))
		}

		err := d.run(ctx, w, dev, inputSize, res)
		if err == nil {
			return nil
		}
		if cfg.device != device.Any || !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// candidates lists the devices a dispatch may try, in order.
func (d *Dispatcher) candidates(id device.ID) ([]device.Adapter, error) {
	if id == device.Any {
		c := d.tracker.Candidates()
		if len(c) == 0 {
			return nil, tracker.ErrNoDevice
		}
		return c, nil
	}
	a, err := d.tracker.Adapter(id)
	if err != nil {
		return nil, err
	}
	return []device.Adapter{a}, nil
}

// retryable reports whether a failed attempt may move on to the next device.
func retryable(err error) bool {
	var se *SetupError
	return errors.As(err, &se) && unavailable(err)
}

// run performs one attempt on dev: mask, scatter, argument preparation, then
// the tiles.
func (d *Dispatcher) run(ctx context.Context, w *worklet.Worklet, dev device.Adapter, inputSize int, res *Result) error {
	id := dev.ID()
	res.Device = id
	res.OutputDomain, res.Tiles = 0, 0
	setupErr := func(err error) error {
		return &SetupError{Worklet: w.Name, Device: id, Err: err}
	}

	if err := device.Usable(dev); err != nil {
		return setupErr(err)
	}

	var (
		active  *array.Handle[bool]
		activeP array.ReadPortal[bool]
		err     error
	)
	if w.Mask != nil {
		if active, err = w.Mask.Build(dev, inputSize); err != nil {
			return setupErr(fmt.Errorf("build mask: %w", err))
		}
	}

	scatter := w.Scatter
	if scatter == nil {
		scatter = worklet.ScatterUniform{}
	}
	sm, err := scatter.Build(dev, inputSize, active)
	if err != nil {
		return setupErr(fmt.Errorf("build scatter: %w", err))
	}

	masked := active != nil
	pctx := &worklet.PrepareContext{Device: dev, InputSize: inputSize, OutputSize: sm.OutputSize, Masked: masked}
	for i, a := range w.Args {
		if err := worklet.Check(a, pctx); err != nil {
			return setupErr(fmt.Errorf("argument %d (%s): %w", i, a.Pattern(), err))
		}
	}

	// Outputs go last: preparing one discards its previous contents, so
	// nothing after it may fail.
	for _, outputs := range []bool{false, true} {
		for i, a := range w.Args {
			if (a.Role() == worklet.RoleOut) != outputs {
				continue
			}
			if err := a.Prepare(pctx); err != nil {
				return setupErr(fmt.Errorf("argument %d (%s): %w", i, a.Pattern(), err))
			}
		}
		if outputs || !masked {
			continue
		}
		if activeP, err = active.PrepareForInput(dev); err != nil {
			return setupErr(fmt.Errorf("prepare mask: %w", err))
		}
	}

	outputSize := sm.OutputSize
	tiles := device.TileCount(dev, outputSize)
	res.OutputDomain, res.Tiles = outputSize, tiles
	if tiles == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	errs := errchan.New(d.errCapacity)
	err = dev.Schedule(tiles, func(t int) {
		lo, hi := device.TileBounds(dev, t, outputSize)
		inv := worklet.NewInvocation(errs)
		for o := lo; o < hi; o++ {
			in := sm.InputIndex(o)
			if masked && !activeP.Get(in) {
				continue
			}
			inv.WorkIndex = o
			inv.InputIndex = in
			inv.OutputIndex = o
			inv.VisitIndex = sm.VisitIndex(o)
			w.Body(&inv)
		}
	})
	telemetry.DispatchInvocations.WithLabelValues(id.String()).Add(float64(outputSize))

	if err != nil {
		var fault *device.FaultError
		if errors.As(err, &fault) {
			d.tracker.Disable(id, fault.Error())
			d.publish(EventDeviceDisabled, res, fault.Error())
			return &DeviceFaultError{Worklet: w.Name, Fault: fault}
		}
		return setupErr(fmt.Errorf("schedule: %w", err))
	}
	if msg, ok := errs.TakeMessage(); ok {
		return &ExecutionError{Worklet: w.Name, Device: id, Message: msg}
	}
	return nil
}

// finish records the outcome of a dispatch in metrics, the span, the log,
// the event stream and the journal.
func (d *Dispatcher) finish(ctx context.Context, span trace.Span, res *Result, err error) {
	devName := "none"
	if res.Device != device.Undefined {
		devName = res.Device.String()
	}
	status := model.StatusCompleted
	class := Classify(err)

	span.SetAttributes(
		attribute.String("device", devName),
		attribute.Int("dispatch.output_domain", res.OutputDomain),
		attribute.Int("dispatch.tiles", res.Tiles),
	)

	if err != nil {
		status = model.StatusFailed
		telemetry.RecordError(span, err)
		d.logger.Error("dispatch failed", "dispatch_id", res.ID, "worklet", res.Worklet, "device", devName,
			"class", string(class), "error", err)
		d.publish(EventFailed, res, err.Error())
	} else {
		d.logger.Info("dispatch completed", "dispatch_id", res.ID, "worklet", res.Worklet, "device", devName,
			"output_domain", res.OutputDomain, "tiles", res.Tiles, "duration", res.Duration)
		d.publish(EventCompleted, res, "")
	}

	telemetry.DispatchesTotal.WithLabelValues(res.Worklet, devName, status).Inc()
	telemetry.DispatchDuration.WithLabelValues(res.Worklet, devName).Observe(res.Duration.Seconds())

	if d.journal == nil {
		return
	}
	rec := &model.Dispatch{
		ID:           res.ID,
		Worklet:      res.Worklet,
		Requested:    res.Requested.String(),
		Status:       status,
		InputDomain:  res.InputDomain,
		OutputDomain: res.OutputDomain,
		Tiles:        res.Tiles,
		Fallbacks:    res.Fallbacks,
		ErrorClass:   string(class),
		DurationUS:   res.Duration.Microseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if res.Device != device.Undefined {
		rec.Device = devName
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := d.journal.RecordDispatch(context.WithoutCancel(ctx), rec); jerr != nil {
		d.logger.Error("failed to record dispatch", "dispatch_id", res.ID, "error", jerr)
	}
}

func (d *Dispatcher) publish(kind string, res *Result, msg string) {
	if d.events == nil {
		return
	}
	ev := Event{
		Kind:       kind,
		DispatchID: res.ID,
		Worklet:    res.Worklet,
		Message:    msg,
		Time:       time.Now().UTC(),
	}
	if res.Device != device.Undefined {
		ev.Device = res.Device.String()
	}
	d.events.Publish(ev)
}
