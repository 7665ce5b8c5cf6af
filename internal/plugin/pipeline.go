// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

var tracer = otel.Tracer("loglens/pipeline")

// Phase is the viewer lifecycle phase of the currently loaded log.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBulkLoading
	PhaseBulkLoaded
	PhaseStreaming
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBulkLoading:
		return "bulk-loading"
	case PhaseBulkLoaded:
		return "bulk-loaded"
	case PhaseStreaming:
		return "streaming"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NamedSurface pairs a viewer plugin's display surface with its name.
type NamedSurface struct {
	Plugin  string
	Surface pluginpkg.Surface
}

// Pipeline drives registered viewer and decoder plugins through the
// two-phase message lifecycle: one bulk pass when a log is opened, then
// repeated streaming passes as entries are appended. Calls into a given
// plugin are serialized (the pipeline holds its lock across a pass), and
// message indices are delivered strictly increasing and contiguous
// from 0.
type Pipeline struct {
	registry *Registry

	mu        sync.Mutex
	phase     Phase
	session   ulid.ULID
	file      pluginpkg.LogFile
	delivered int
	decoded   map[int]bool
	surfaces  []NamedSurface
	activated bool
}

// NewPipeline creates a pipeline over the registry's viewers and decoders.
// Panics if registry is nil.
func NewPipeline(registry *Registry) *Pipeline {
	if registry == nil {
		panic("plugin: registry cannot be nil")
	}
	return &Pipeline{
		registry: registry,
		decoded:  make(map[int]bool),
	}
}

// Activate calls InitViewer once on every granted viewer and collects the
// returned display surfaces. A nil surface means the plugin has no usable
// display and is skipped. Subsequent calls are no-ops.
func (p *Pipeline) Activate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.activated {
		return
	}
	p.activated = true

	for _, bv := range p.registry.Viewers() {
		surface := bv.Viewer.InitViewer()
		if surface == nil {
			continue
		}
		p.surfaces = append(p.surfaces, NamedSurface{Plugin: bv.Name, Surface: surface})
	}
}

// Surfaces returns the display surfaces collected at activation.
func (p *Pipeline) Surfaces() []NamedSurface {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NamedSurface, len(p.surfaces))
	copy(out, p.surfaces)
	return out
}

// Phase returns the current lifecycle phase.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Session identifies the currently loaded log.
func (p *Pipeline) Session() ulid.ULID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// OpenLog runs the bulk phase over every message already present in file:
// InitFileStart, one InitMsg per index in increasing contiguous order from
// 0 (plus InitMsgDecoded when a decoder accepted the message), then
// exactly one InitFileFinish. Opening a new log replaces the previous
// session and resets indices.
func (p *Pipeline) OpenLog(ctx context.Context, file pluginpkg.LogFile) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case PhaseUninitialized, PhaseBulkLoaded:
	default:
		return ErrWrongPhase("open log", p.phase)
	}

	ctx, span := tracer.Start(ctx, "pipeline.bulk",
		trace.WithAttributes(
			attribute.String("log.path", file.Path()),
			attribute.Int("log.messages", file.MessageCount()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p.session = ulid.Make()
	p.file = file
	p.delivered = 0
	p.decoded = make(map[int]bool)
	p.phase = PhaseBulkLoading

	viewers := p.registry.Viewers()
	for _, bv := range viewers {
		bv.Viewer.InitFileStart(file)
	}

	count := file.MessageCount()
	for i := 0; i < count; i++ {
		msg, readErr := file.MessageAt(i)
		if readErr != nil {
			// The bulk pass still has to finish: InitFileFinish fires
			// exactly once per log open even when the log is truncated
			// under us.
			slog.Error("bulk pass aborted by read failure",
				"index", i,
				"error", readErr)
			err = readErr
			break
		}

		wasDecoded := p.decode(ctx, msg, pluginpkg.TriggerAuto)
		for _, bv := range viewers {
			bv.Viewer.InitMsg(i, msg)
			if wasDecoded {
				bv.Viewer.InitMsgDecoded(i, msg)
			}
		}
		p.decoded[i] = wasDecoded
		p.delivered = i + 1
		MessagesDelivered.WithLabelValues("bulk").Inc()
	}

	for _, bv := range viewers {
		bv.Viewer.InitFileFinish()
	}
	p.phase = PhaseBulkLoaded
	return err
}

// Append runs one streaming pass over newly appended messages, whose
// indices must continue contiguously from the last delivered index. An
// empty batch is a no-op: the UpdateFileStart/UpdateFileFinish triad only
// fires when there is something to deliver.
func (p *Pipeline) Append(ctx context.Context, msgs []*pluginpkg.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != PhaseBulkLoaded {
		return ErrWrongPhase("append", p.phase)
	}
	if len(msgs) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.stream",
		trace.WithAttributes(attribute.Int("batch.size", len(msgs))),
	)
	defer span.End()

	viewers := p.registry.Viewers()
	p.phase = PhaseStreaming
	for _, bv := range viewers {
		bv.Viewer.UpdateFileStart()
	}

	var gapErr error
	for _, msg := range msgs {
		idx := msg.Index()
		if idx != p.delivered {
			// Indices are host-assigned; a gap here is a host bug, not a
			// plugin error. Finish the triad before reporting it.
			gapErr = ErrIndexGap(idx, p.delivered)
			break
		}
		wasDecoded := p.decode(ctx, msg, pluginpkg.TriggerAuto)
		for _, bv := range viewers {
			bv.Viewer.UpdateMsg(idx, msg)
			if wasDecoded {
				bv.Viewer.UpdateMsgDecoded(idx, msg)
			}
		}
		p.decoded[idx] = wasDecoded
		p.delivered = idx + 1
		MessagesDelivered.WithLabelValues("stream").Inc()
	}

	for _, bv := range viewers {
		bv.Viewer.UpdateFileFinish()
	}
	p.phase = PhaseBulkLoaded
	return gapErr
}

// Select reports a user selection of an already delivered message to every
// viewer. Selecting an index that was never delivered is refused.
func (p *Pipeline) Select(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case PhaseBulkLoaded, PhaseStreaming:
	default:
		return ErrWrongPhase("select", p.phase)
	}
	if index < 0 || index >= p.delivered {
		return ErrIndexUnknown(index, p.delivered)
	}

	msg, err := p.file.MessageAt(index)
	if err != nil {
		return err
	}

	for _, bv := range p.registry.Viewers() {
		bv.Viewer.SelectedIdxMsg(index, msg)
		if p.decoded[index] {
			bv.Viewer.SelectedIdxMsgDecoded(index, msg)
		}
	}
	return nil
}

// Close ends the session. A closed pipeline is terminal: OpenLog refuses
// it, and the host builds a fresh pipeline for the next session. The host
// owns the surfaces' lifetime: they are dropped here, on deactivation, and
// plugins must not rely on them afterwards.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PhaseClosed
	p.surfaces = nil
	p.file = nil
}

// Decode runs the decoder chain over msg for an explicit user action such
// as an export, outside the viewer lifecycle.
func (p *Pipeline) Decode(ctx context.Context, msg *pluginpkg.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decode(ctx, msg, pluginpkg.TriggerUser)
}

// decode offers msg to each granted decoder in registration order and lets
// the first one that claims it attach the decoded form. A decode failure
// is recoverable: the message stays raw and the pipeline moves on.
func (p *Pipeline) decode(_ context.Context, msg *pluginpkg.Message, trigger pluginpkg.Trigger) bool {
	for _, bd := range p.registry.Decoders() {
		if !bd.Decoder.IsMsg(msg, trigger) {
			continue
		}
		if err := bd.Decoder.DecodeMsg(msg, trigger); err != nil {
			RecordDecode(bd.Name, "failed")
			slog.Warn("decode failed, falling back to raw form",
				"plugin", bd.Name,
				"index", msg.Index(),
				"error", err)
			return false
		}
		RecordDecode(bd.Name, "decoded")
		return true
	}
	return false
}
