package policy

import (
	"fmt"

	"github.com/optipim/kvbank-sim/pim"
)

func init() {
	pim.NewKVCachePolicyFunc = newByName
}

// newByName dispatches on the configured policy name. Unknown names are a
// configuration error at startup, not a runtime condition to recover
// from, so this panics like the routing-policy factory it is modeled on.
func newByName(name string, opts pim.PolicyOptions) pim.KVCachePolicy {
	switch name {
	case "Naive":
		return NewNaive()
	case "BankPartitioning":
		return NewBankPartitioning(opts.BankPartitioningStart, opts.BankPartitioningCount)
	case "ContentionAware":
		return NewContentionAware(opts.MaxKVPerBank)
	case "SmartLocality":
		localityWeight := defaultLocalityWeight
		if opts.LocalityWeight != nil {
			localityWeight = *opts.LocalityWeight
		}
		activityThresholdPercent := defaultActivityThresholdPercent
		if opts.ActivityThresholdPercent != nil {
			activityThresholdPercent = *opts.ActivityThresholdPercent
		}
		return NewSmartLocality(localityWeight, opts.MaxKVPerBank, activityThresholdPercent)
	default:
		panic(fmt.Sprintf("unknown kv cache policy %q", name))
	}
}
