// Package imagegen orchestrates one image generation request end to
// end: admission through the device pool, backend invocation under the
// lease, statistics, and history recording.
//
// The orchestrator is deliberately thin. It owns the sequencing and the
// release-on-every-path discipline; all policy lives in the components
// it composes.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tinyimg/backend"
	"tinyimg/history"
	"tinyimg/inventory"
	"tinyimg/pool"
	"tinyimg/stats"
)

// Orchestrator wires the resource pool, backend registry, stats tracker
// and history store together. Safe for concurrent use.
type Orchestrator struct {
	pool           *pool.Pool
	registry       *backend.Registry
	stats          *stats.Tracker
	history        *history.Store // nil disables history recording
	log            *zap.Logger
	acquireTimeout time.Duration
}

// Config holds the orchestrator's collaborators and policy knobs.
type Config struct {
	Pool     *pool.Pool
	Registry *backend.Registry
	Stats    *stats.Tracker
	// History is optional; nil disables persistence.
	History *history.Store
	Logger  *zap.Logger
	// AcquireTimeout bounds how long a request waits for a free
	// device before being rejected as busy.
	AcquireTimeout time.Duration
}

// DefaultAcquireTimeout matches the original server's
// image_generation_timeout default.
const DefaultAcquireTimeout = 60 * time.Second

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		pool:           cfg.Pool,
		registry:       cfg.Registry,
		stats:          cfg.Stats,
		history:        cfg.History,
		log:            log,
		acquireTimeout: timeout,
	}
}

// Result carries one completed generation back to the adapter layer.
type Result struct {
	// RequestID is the lease id, usable for correlation with history
	// and logs.
	RequestID string
	// ImageData is the PNG-encoded image.
	ImageData []byte
	// Seed is the seed actually used.
	Seed int64
	// Model is the model id that generated the image.
	Model string
	// Device is the device the generation ran on.
	Device *inventory.Device
	// Elapsed is the generation wall time, excluding queue wait.
	Elapsed time.Duration
	// Params are the effective parameters after defaulting, so
	// adapters echo what actually ran rather than the raw request.
	Params backend.Params
}

// Generate runs one request through the full sequence. Error classes:
//
//   - backend.ErrInvalidParams / ErrInvalidPrompt: request rejected
//     before admission.
//   - backend.ErrModelNotRegistered: unknown model, rejected before
//     admission.
//   - pool.ErrAcquireTimeout: no device freed within the configured
//     wait; callers report "server busy".
//   - pool.ErrNoDevicesConfigured: fatal misconfiguration.
//   - backend.ErrGenerationFailed (and load failures): the device was
//     released; the request may be retried by the caller.
func (o *Orchestrator) Generate(ctx context.Context, modelID string, params backend.Params) (*Result, error) {
	params.ApplyDefaults()
	if err := backend.ValidateParams(params); err != nil {
		return nil, err
	}
	if !o.registry.Registered(modelID) {
		return nil, fmt.Errorf("%w: %q", backend.ErrModelNotRegistered, modelID)
	}

	o.stats.RecordRequestStart()

	lease, err := o.pool.Acquire(ctx, modelID, o.acquireTimeout)
	if err != nil {
		// An empty inventory is a misconfiguration, not a timed-out
		// wait; it leaves the queue without counting as a failure.
		if errors.Is(err, pool.ErrNoDevicesConfigured) {
			o.stats.RecordRequestRejected()
			o.log.Error("generation rejected: no devices configured",
				zap.String("model", modelID))
			return nil, err
		}
		o.stats.RecordLeaseTimeout()
		o.log.Warn("generation rejected: no device available",
			zap.String("model", modelID),
			zap.Duration("wait_timeout", o.acquireTimeout))
		return nil, err
	}
	o.stats.RecordLeaseGranted()

	// Release on every exit path. A second release here is a lifetime
	// bug in this function and must be loud, not swallowed.
	defer func() {
		if err := o.pool.Release(lease); err != nil {
			o.log.DPanic("lease release failed", zap.Error(err),
				zap.String("request_id", lease.ID))
		}
	}()

	log := o.log.With(
		zap.String("request_id", lease.ID),
		zap.String("model", modelID),
		zap.String("device", lease.Device.Name),
		zap.Int("device_index", lease.Device.Index),
	)

	gen, err := o.registry.Backend(modelID, lease.Device)
	if err != nil {
		o.stats.RecordGenerationFailed(modelID)
		o.record(lease, params, nil, 0, err)
		log.Error("backend load failed", zap.Error(err))
		return nil, err
	}
	lease.MarkWarm()

	start := time.Now()
	result, err := gen.Generate(ctx, lease.Device, params)
	elapsed := time.Since(start)
	if err != nil {
		o.stats.RecordGenerationFailed(modelID)
		o.record(lease, params, nil, elapsed, err)
		log.Error("generation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	if err := backend.ValidateImageData(result.ImageData); err != nil {
		o.stats.RecordGenerationFailed(modelID)
		o.record(lease, params, result, elapsed, err)
		log.Error("generated image failed validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", backend.ErrGenerationFailed, err)
	}

	o.stats.RecordGenerationComplete(modelID, elapsed)
	o.record(lease, params, result, elapsed, nil)
	log.Info("generation complete",
		zap.Duration("elapsed", elapsed),
		zap.Int64("seed", result.Seed),
		zap.Int("bytes", len(result.ImageData)))

	return &Result{
		RequestID: lease.ID,
		ImageData: result.ImageData,
		Seed:      result.Seed,
		Model:     modelID,
		Device:    lease.Device,
		Elapsed:   elapsed,
		Params:    params,
	}, nil
}

// record appends a history row when a store is configured.
func (o *Orchestrator) record(lease *pool.Lease, params backend.Params, result *backend.Result, elapsed time.Duration, genErr error) {
	if o.history == nil {
		return
	}

	rec := history.Record{
		RequestID:   lease.ID,
		Model:       lease.ModelID,
		DeviceIndex: lease.Device.Index,
		DeviceName:  lease.Device.Name,
		Width:       params.Width,
		Height:      params.Height,
		Steps:       params.Steps,
		Seed:        params.Seed,
		Status:      history.StatusSuccess,
		DurationMS:  elapsed.Milliseconds(),
	}
	if result != nil {
		rec.Seed = result.Seed
	}
	if genErr != nil {
		rec.Status = history.StatusError
		rec.ErrorMessage = genErr.Error()
	}
	o.history.Append(rec)
}

// AcquireTimeout reports the configured admission wait bound.
func (o *Orchestrator) AcquireTimeout() time.Duration {
	return o.acquireTimeout
}
