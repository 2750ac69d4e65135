package pim

// KVTraceGeneratorConfig groups the parameters that shape per-token KV
// cache traffic. Defaults: head_dim=128, hidden_dim=4096, sizeof(float32)=4,
// row granule=8192 bytes, block size=4096 bytes. Reads and writes use
// distinct per-token footprints: a read replays BlockSize bytes of a prior
// token's entry, while a write materializes the full kv_data_size
// (head_dim * hidden_dim * 2 * sizeof(float)) computed by KVDataSize.
type KVTraceGeneratorConfig struct {
	HeadDim         int   // attention head dimension
	HiddenDim       int   // hidden dimension
	BytesPerElement int64 // sizeof(float) in the original formula
	RowGranuleBytes int64 // bytes per DRAM row granule; kept configurable rather than hardcoded (see Open Questions)
	BlockSize       int64 // bytes read back per prior token during the read phase; distinct from KVDataSize
}

// NewKVTraceGeneratorConfig creates a KVTraceGeneratorConfig with all
// fields explicitly set. This is the canonical constructor — all
// construction sites must use it.
func NewKVTraceGeneratorConfig(headDim, hiddenDim int, bytesPerElement, rowGranuleBytes, blockSize int64) KVTraceGeneratorConfig {
	return KVTraceGeneratorConfig{
		HeadDim:         headDim,
		HiddenDim:       hiddenDim,
		BytesPerElement: bytesPerElement,
		RowGranuleBytes: rowGranuleBytes,
		BlockSize:       blockSize,
	}
}

// DefaultKVTraceGeneratorConfig returns the standard transformer defaults:
// head_dim=128, hidden_dim=4096, float32 elements, 8192B row granule,
// 4096B read block size.
func DefaultKVTraceGeneratorConfig() KVTraceGeneratorConfig {
	return NewKVTraceGeneratorConfig(128, 4096, 4, 8192, 4096)
}

// KVDataSize returns kv_data_size = head_dim * hidden_dim * 2 * sizeof(float),
// the combined K+V footprint for one token.
func (c KVTraceGeneratorConfig) KVDataSize() int64 {
	return int64(c.HeadDim) * int64(c.HiddenDim) * 2 * c.BytesPerElement
}

// FrontendConfig groups the trace-expander's configuration.
type FrontendConfig struct {
	Path                   string        // trace file path (required)
	EnableKVCache          bool          // whether to run the KV placement policy at all
	StaticWeightTracePath  string        // upstream layout trace (optional)
	NumTokens              int           // number of decode tokens to synthesize
	KernelSliceOpsPerToken int           // kernel-op window per token; 0 = pure-KV mode
	ClockRatio             int           // required by the DRAM back-end wiring
	PolicyName             string        // one of Naive, BankPartitioning, ContentionAware, SmartLocality
	Policy                 PolicyOptions // per-policy configuration options (§6)
}

// NewFrontendConfig creates a FrontendConfig with all fields explicitly
// set. This is the canonical constructor — all construction sites must
// use it. Parameter order matches struct field order.
func NewFrontendConfig(path string, enableKVCache bool, staticWeightTracePath string,
	numTokens, kernelSliceOpsPerToken, clockRatio int, policyName string, policyOpts PolicyOptions) FrontendConfig {
	return FrontendConfig{
		Path:                   path,
		EnableKVCache:          enableKVCache,
		StaticWeightTracePath:  staticWeightTracePath,
		NumTokens:              numTokens,
		KernelSliceOpsPerToken: kernelSliceOpsPerToken,
		ClockRatio:             clockRatio,
		PolicyName:             policyName,
		Policy:                 policyOpts,
	}
}

// DefaultFrontendConfig returns a FrontendConfig with reasonable defaults
// for every field except Path, ClockRatio and PolicyName, which are always
// required / caller-selected.
func DefaultFrontendConfig(path string, clockRatio int, policyName string) FrontendConfig {
	return NewFrontendConfig(path, false, "", 512, 5000, clockRatio, policyName, PolicyOptions{})
}

// Safety and fallback constants referenced by the frontend.
const (
	// MaxFlatKernelOps bounds the pre-scanned kernel-op buffer so a
	// pathological kernel block cannot grow it without limit.
	MaxFlatKernelOps = 5_000_000
	// LiveWeightSyntheticSignatures is the fixed number of synthetic address
	// signatures injected per writing bank when falling back to the live
	// weight map derived from kernel-expansion writes.
	LiveWeightSyntheticSignatures = 100
)
