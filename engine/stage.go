package engine

import "github.com/hupe1980/finmesh/core"

// Stage is a step of the orchestration state machine.
type Stage string

const (
	StageRouting        Stage = "routing"
	StageFanout         Stage = "fanout"
	StageSequential     Stage = "sequential"
	StageComplianceGate Stage = "compliance-gate"
	StageFinalize       Stage = "finalize"
	StageDone           Stage = "done"
)

// FanoutCapabilities are the capabilities whose agents may run concurrently,
// in merge order.
var FanoutCapabilities = []core.Capability{
	core.CapabilityTransaction,
	core.CapabilityBudget,
	core.CapabilityDocumentResearch,
}

// Plan returns the stages a run executes for caps.
func Plan(caps core.CapabilitySet) []Stage {
	plan := []Stage{StageRouting}

	if caps.Has(core.CapabilityShopping) {
		return append(plan, StageSequential, StageFinalize, StageDone)
	}

	if caps.HasAny(FanoutCapabilities...) {
		plan = append(plan, StageFanout)
	}
	if gated(caps) {
		plan = append(plan, StageComplianceGate)
	}

	return append(plan, StageFinalize, StageDone)
}

// gated reports whether a compliance pass follows the fan-out.
func gated(caps core.CapabilitySet) bool {
	return caps.HasAny(core.CapabilityCompliance, core.CapabilityTransaction, core.CapabilityBudget)
}

func stageStrings(plan []Stage) []string {
	out := make([]string, len(plan))
	for i, s := range plan {
		out[i] = string(s)
	}
	return out
}
