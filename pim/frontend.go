package pim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/optipim/kvbank-sim/internal/util"
)

// streamOp is one entry in the synthesized interleaved stream: the
// concrete operation plus the traffic class the conflict tracker should
// register it under.
type streamOp struct {
	op        Operation
	isWeight  bool
	signature uint64
}

// FrontendStats summarizes one run's policy and conflict accounting.
type FrontendStats struct {
	Policy              PolicyStats
	Conflict            ConflictStats
	ConflictRatePercent float64
}

// Frontend loads a trace, wires it against an external DRAM back-end and
// kernel code generator, expands it into a concrete operation stream
// (synthesizing KV cache traffic alongside the original trace), and
// streams that expanded trace into the back-end one operation at a time.
type Frontend struct {
	cfg FrontendConfig

	backend DRAMBackend
	codegen KernelCodeGen
	org     Organization

	trace         *LoadedTrace
	staticWeights StaticWeightMap
	policy        KVCachePolicy
	tracker       *BankConflictTracker
	generator     *KVTraceGenerator

	kernelOps map[int][]Operation

	stream []streamOp
	cursor int
	clock  int64
}

// NewFrontend constructs an unconnected Frontend from cfg. Call Load then
// Connect before Expand/Synthesize.
func NewFrontend(cfg FrontendConfig) *Frontend {
	return &Frontend{cfg: cfg, tracker: NewBankConflictTracker()}
}

// Load parses the trace file named in cfg.Path.
func (f *Frontend) Load() error {
	trace, err := LoadTrace(f.cfg.Path)
	if err != nil {
		return err
	}
	f.trace = trace
	return nil
}

// Connect wires the frontend against a DRAM back-end and kernel code
// generator, derives the bank organization and count from the back-end,
// loads the static weight map (if configured), and initializes the KV
// cache placement policy.
func (f *Frontend) Connect(backend DRAMBackend, codegen KernelCodeGen) {
	f.backend = backend
	f.codegen = codegen
	f.org = backend.Organization()

	numBanks := int(f.org.TotalBanks())

	if f.cfg.StaticWeightTracePath != "" {
		f.staticWeights = LoadStaticWeightMap(f.cfg.StaticWeightTracePath, numBanks)
	} else {
		f.staticWeights = make(StaticWeightMap)
	}

	if f.cfg.EnableKVCache {
		f.policy = NewKVCachePolicy(f.cfg.PolicyName, f.cfg.Policy)
		f.policy.Init(numBanks, f.staticWeights)
		kvCfg := DefaultKVTraceGeneratorConfig()
		f.generator = NewKVTraceGenerator(kvCfg, f.org, f.policy)
	}
}

// Expand pre-scans every kernel block sealed by the loader and lowers it
// through the code generator, capping the total flattened op count at
// MaxFlatKernelOps. Kernels beyond the cap are skipped with a warning
// rather than grown without bound.
func (f *Frontend) Expand() {
	f.kernelOps = make(map[int][]Operation, len(f.trace.Kernels))
	var total int64
	for idx, kernel := range f.trace.Kernels {
		if total >= MaxFlatKernelOps {
			guard := &OverflowGuard{Detail: fmt.Sprintf(
				"MaxFlatKernelOps (%d) reached; skipping remaining %d kernel blocks",
				MaxFlatKernelOps, len(f.trace.Kernels)-idx)}
			logrus.Warn(guard)
			break
		}
		ops := f.codegen.CodegenKernel(kernel)
		if total+util.Len64(ops) > MaxFlatKernelOps {
			allowed := MaxFlatKernelOps - total
			guard := &OverflowGuard{Detail: fmt.Sprintf(
				"kernel block %d truncated from %d to %d ops by MaxFlatKernelOps", idx, len(ops), allowed)}
			logrus.Warn(guard)
			ops = ops[:allowed]
		}
		f.kernelOps[idx] = ops
		total += util.Len64(ops)
	}

	if f.cfg.EnableKVCache && len(f.staticWeights) == 0 {
		f.deriveLiveWeightMap()
	}
}

// deriveLiveWeightMap runs when no static weight trace was supplied (or
// it carried no entries): it treats every bank that receives a write
// anywhere in the original trace or the expanded kernel ops as a
// "writing bank" and seeds it with LiveWeightSyntheticSignatures
// synthetic signatures, giving the contention-aware policies something
// to avoid even without real layout data. The derived map is pushed into
// the policy via SetStaticWeightMapping rather than by re-running Init,
// since the real placement is only visible after kernel expansion.
func (f *Frontend) deriveLiveWeightMap() {
	writingBanks := make(map[BankIndex]struct{})
	for _, entry := range f.trace.Entries {
		if entry.Op == OpWrite {
			if bank := Project(entry.Addr, f.org); bank >= 0 {
				writingBanks[bank] = struct{}{}
			}
		}
	}
	for _, ops := range f.kernelOps {
		for _, op := range ops {
			if op.Op == OpWrite {
				if bank := Project(op.Addr, f.org); bank >= 0 {
					writingBanks[bank] = struct{}{}
				}
			}
		}
	}

	if len(writingBanks) == 0 {
		return
	}
	for bank := range writingBanks {
		for i := 0; i < LiveWeightSyntheticSignatures; i++ {
			f.staticWeights.insert(bank, uint64(bank)<<32|uint64(i))
		}
	}
	if f.policy != nil {
		f.policy.SetStaticWeightMapping(f.staticWeights)
	}
	logrus.Infof("[Frontend] derived live weight map over %d banks (no static weight trace supplied)", len(writingBanks))
}

// Synthesize builds the interleaved operation stream: the original
// trace's direct ops and sealed kernel blocks (weight-class traffic),
// interleaved with NumTokens worth of generated KV cache activity
// (kv-class traffic) when EnableKVCache is set. Kernel op windows are
// sliced in after every token according to KernelSliceOpsPerToken, so
// weight and KV traffic actually contend for banks rather than running
// back to back.
func (f *Frontend) Synthesize() {
	var flatKernel []Operation
	for idx := range f.trace.Kernels {
		flatKernel = append(flatKernel, f.kernelOps[idx]...)
	}

	var stream []streamOp
	kernelCursor := 0
	emitKernelSlice := func() {
		if f.cfg.KernelSliceOpsPerToken <= 0 || kernelCursor >= len(flatKernel) {
			return
		}
		end := kernelCursor + f.cfg.KernelSliceOpsPerToken
		if end > len(flatKernel) {
			end = len(flatKernel)
		}
		for _, op := range flatKernel[kernelCursor:end] {
			stream = append(stream, streamOp{op: op, isWeight: true})
		}
		kernelCursor = end
	}

	for _, entry := range f.trace.Entries {
		if entry.Op == OpKernel {
			continue // flattened separately into flatKernel above
		}
		stream = append(stream, streamOp{op: Operation{Op: entry.Op, Addr: entry.Addr}, isWeight: true})
	}

	if f.cfg.EnableKVCache && f.generator != nil {
		for t := 0; t < f.cfg.NumTokens; t++ {
			for _, op := range f.generator.GenerateInferenceStep(int64(t)) {
				stream = append(stream, streamOp{op: op, isWeight: false, signature: uint64(t)})
			}
			emitKernelSlice()
		}
	}
	if f.cfg.KernelSliceOpsPerToken > 0 {
		for kernelCursor < len(flatKernel) {
			emitKernelSlice()
		}
	}

	f.stream = stream
	f.cursor = 0
}

// Tick attempts to send the next operation in the synthesized stream to
// the back-end. A refusal leaves the cursor in place so the same op is
// retried on the next call; Tick returns (false, false) in that case. It
// returns (true, false) after a successful send and (false, true) once
// the stream is exhausted.
func (f *Frontend) Tick() (sent bool, done bool) {
	if f.cursor >= len(f.stream) {
		return false, true
	}
	entry := f.stream[f.cursor]
	if !f.backend.Send(entry.op.Op, entry.op.Addr) {
		return false, false
	}

	bank := Project(entry.op.Addr, f.org)
	if err := f.org.Validate(bank); err != nil {
		logrus.Warn(err)
	} else if entry.isWeight {
		f.tracker.RegisterWeightOperation(bank, f.clock, entry.signature)
		f.tracker.CompleteWeightOperation(bank, entry.signature)
	} else {
		f.tracker.RegisterKVOperation(bank, f.clock, entry.signature)
		f.tracker.CompleteKVOperation(bank, entry.signature)
	}
	f.cursor++
	f.clock++
	return true, false
}

// Stream drives Tick in a loop until the stream is exhausted. A refused op
// is offered again on the next iteration, so a back-end that keeps
// refusing keeps Stream looping; Stream does not poll Finished.
func (f *Frontend) Stream() {
	for {
		_, done := f.Tick()
		if done {
			return
		}
	}
}

// Finalize reports accumulated policy and conflict statistics.
func (f *Frontend) Finalize() FrontendStats {
	var policyStats PolicyStats
	if f.policy != nil {
		policyStats = f.policy.Stats()
	}
	conflictStats := f.tracker.Stats()

	var rate float64
	totalOps := conflictStats.TotalWeightOps + conflictStats.TotalKVOps
	if totalOps > 0 {
		rate = float64(conflictStats.TotalConflicts) / float64(totalOps) * 100.0
	}

	logrus.Infof("[Frontend] policy total_allocations=%d total_conflicts=%d banks_touched=%d",
		policyStats.TotalAllocations, policyStats.TotalConflicts, policyStats.BanksTouched)
	logrus.Infof("[Frontend] tracker total_conflicts=%d weight_blocked_by_kv=%d kv_blocked_by_weight=%d weight_ops=%d kv_ops=%d conflict_rate=%.2f%%",
		conflictStats.TotalConflicts, conflictStats.WeightBlockedByKV, conflictStats.KVBlockedByWeight,
		conflictStats.TotalWeightOps, conflictStats.TotalKVOps, rate)

	return FrontendStats{Policy: policyStats, Conflict: conflictStats, ConflictRatePercent: rate}
}
