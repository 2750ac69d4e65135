package pim_test

// Blank import triggers pim/policy's init(), which registers
// NewKVCachePolicyFunc. This lets this package's frontend-level tests
// construct policies by name without pim itself importing pim/policy
// (which would create an import cycle).
import _ "github.com/optipim/kvbank-sim/pim/policy"
