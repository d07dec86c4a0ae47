package eventbus

import (
	"fmt"

	"github.com/hqdncw/vault-autopilot-go/internal/apperror"
	"github.com/hqdncw/vault-autopilot-go/internal/dto"
)

// Stage names a lifecycle point in a resource's apply flow.
type Stage string

const (
	StageApplicationRequested Stage = "ApplicationRequested"
	StageApplicationInitiated Stage = "ApplicationInitiated"
	StageVerifySuccess        Stage = "VerifySuccess"
	StageVerifyError          Stage = "VerifyError"
	StageCreateSuccess        Stage = "CreateSuccess"
	StageCreateError          Stage = "CreateError"
	StageUpdateSuccess        Stage = "UpdateSuccess"
	StageUpdateError          Stage = "UpdateError"
)

// successStages and errorStages let processors and tests classify outcome
// stages without re-deriving the mapping from dto.ApplyStatus everywhere.
var successStages = map[Stage]bool{
	StageVerifySuccess: true,
	StageCreateSuccess: true,
	StageUpdateSuccess: true,
}

// IsSuccess reports whether stage denotes a resource reaching a non-error
// terminal state (used by upstream-dependency triggers, which fire only on
// *Success variants).
func (s Stage) IsSuccess() bool { return successStages[s] }

var errorStages = map[Stage]bool{
	StageVerifyError: true,
	StageCreateError: true,
	StageUpdateError: true,
}

// IsError reports whether stage denotes an outcome that carries errors.
func (s Stage) IsError() bool { return errorStages[s] }

// StageForStatus maps a service ApplyResult status onto its outcome event
// stage.
func StageForStatus(status dto.ApplyStatus) Stage {
	switch status {
	case dto.StatusVerifySuccess:
		return StageVerifySuccess
	case dto.StatusVerifyError:
		return StageVerifyError
	case dto.StatusCreateSuccess:
		return StageCreateSuccess
	case dto.StatusCreateError:
		return StageCreateError
	case dto.StatusUpdateSuccess:
		return StageUpdateSuccess
	case dto.StatusUpdateError:
		return StageUpdateError
	default:
		return ""
	}
}

// Variant is the registration key matched by Bus.Register: a resource kind
// paired with a lifecycle stage, or one of the two cross-cutting variants.
type Variant struct {
	Kind  dto.Kind
	Stage Stage
}

func (v Variant) String() string {
	if v.Kind == "" {
		return string(v.Stage)
	}
	return fmt.Sprintf("%s.%s", v.Kind, v.Stage)
}

// ForKind builds the per-kind variant for stage.
func ForKind(kind dto.Kind, stage Stage) Variant { return Variant{Kind: kind, Stage: stage} }

// SuccessVariants returns the three success-outcome variants for kind, used
// by chain-based processors to register their upstream dependency triggers
// ("Issuer-*Success variants", per the processor design).
func SuccessVariants(kind dto.Kind) []Variant {
	return []Variant{
		ForKind(kind, StageVerifySuccess),
		ForKind(kind, StageCreateSuccess),
		ForKind(kind, StageUpdateSuccess),
	}
}

// Cross-cutting variants, not scoped to a resource kind.
const (
	stageShutdownRequested Stage = "ShutdownRequested"
	stageUnresolvedDeps    Stage = "UnresolvedDepsDetected"
)

var (
	// VariantShutdownRequested is triggered exactly once, after the
	// dispatcher's manifest queue is exhausted.
	VariantShutdownRequested = Variant{Stage: stageShutdownRequested}
	// VariantUnresolvedDepsDetected is triggered by each chain-based
	// processor's shutdown-time postprocess.
	VariantUnresolvedDepsDetected = Variant{Stage: stageUnresolvedDeps}
)

// Event is the immutable payload passed to Trigger. Handlers type-switch or
// inspect Variant to decide how to interpret Payload.
type Event struct {
	Variant Variant
	Payload dto.Payload
	Result  *dto.ApplyResult
	Edges   []apperror.UnresolvedDependencyError
}

// ApplicationRequested builds the event a dispatcher emits per queued
// manifest object.
func ApplicationRequested(payload dto.Payload) Event {
	return Event{Variant: ForKind(payload.Kind(), StageApplicationRequested), Payload: payload}
}

// ApplicationInitiated builds the event a processor emits just before
// calling into the service layer.
func ApplicationInitiated(payload dto.Payload) Event {
	return Event{Variant: ForKind(payload.Kind(), StageApplicationInitiated), Payload: payload}
}

// Outcome builds the event a processor emits after the service layer
// returns, choosing the stage from result.Status.
func Outcome(payload dto.Payload, result dto.ApplyResult) Event {
	return Event{
		Variant: ForKind(payload.Kind(), StageForStatus(result.Status)),
		Payload: payload,
		Result:  &result,
	}
}

// ShutdownRequested builds the terminal event the dispatcher emits once its
// manifest queue is drained.
func ShutdownRequested() Event {
	return Event{Variant: VariantShutdownRequested}
}

// UnresolvedDepsDetected aggregates the pending edges a single chain-based
// processor observed at shutdown.
func UnresolvedDepsDetected(edges []apperror.UnresolvedDependencyError) Event {
	return Event{Variant: VariantUnresolvedDepsDetected, Edges: edges}
}
