// Package cmd implements the kvbank-sim command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/optipim/kvbank-sim/pim"
	_ "github.com/optipim/kvbank-sim/pim/policy"
)

var (
	tracePath              string
	staticWeightTracePath  string
	enableKVCache          bool
	numTokens              int
	kernelSliceOpsPerToken int
	clockRatio             int
	policyName             string

	kvCacheBanksStart        int
	kvCacheBanksCount        int
	maxKVPerBank             int
	localityWeight           float64
	activityThresholdPercent float64

	numChannels   int64
	numRanks      int64
	numBankGroups int64
	numBanks      int64
	numRows       int64
	numCols       int64

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "kvbank-sim",
	Short: "KV-cache-aware processing-in-memory bank conflict simulator",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Expand a trace and report bank conflict and placement statistics",
	RunE:  runFrontend,
}

func init() {
	level, err := logrus.ParseLevel(envOr("KVBANK_LOG_LEVEL", "info"))
	if err == nil {
		logrus.SetLevel(level)
	}

	runCmd.Flags().StringVar(&tracePath, "path", "", "trace file path (required)")
	runCmd.Flags().StringVar(&staticWeightTracePath, "static-weight-trace-path", "", "upstream layout trace (optional)")
	runCmd.Flags().BoolVar(&enableKVCache, "enable-kv-cache", false, "synthesize KV cache traffic")
	runCmd.Flags().IntVar(&numTokens, "num-tokens", 512, "number of decode tokens to synthesize")
	runCmd.Flags().IntVar(&kernelSliceOpsPerToken, "kernel-slice-ops-per-token", 5000, "kernel op window interleaved per token; 0 = pure KV mode")
	runCmd.Flags().IntVar(&clockRatio, "clock-ratio", 1, "DRAM backend clock ratio")
	runCmd.Flags().StringVar(&policyName, "policy", "Naive", "KV cache placement policy: Naive, BankPartitioning, ContentionAware, SmartLocality")

	runCmd.Flags().IntVar(&kvCacheBanksStart, "kv-cache-banks-start", 0, "BankPartitioning: first bank of the reserved range")
	runCmd.Flags().IntVar(&kvCacheBanksCount, "kv-cache-banks-count", 0, "BankPartitioning: size of the reserved range (0 = a quarter of the total bank count)")
	runCmd.Flags().IntVar(&maxKVPerBank, "max-kv-per-bank", 0, "ContentionAware/SmartLocality: per-bank KV allocation cap (0 = default of 3)")
	runCmd.Flags().Float64Var(&localityWeight, "locality-weight", -1, "SmartLocality: locality bonus weight in [0,1] (negative = default of 0.3)")
	runCmd.Flags().Float64Var(&activityThresholdPercent, "activity-threshold-percent", -1, "SmartLocality: activity threshold percent (negative = default of 10)")

	runCmd.Flags().Int64Var(&numChannels, "num-channels", 1, "DRAM channel count")
	runCmd.Flags().Int64Var(&numRanks, "num-ranks", 1, "DRAM rank count")
	runCmd.Flags().Int64Var(&numBankGroups, "num-bankgroups", 4, "bankgroups per rank")
	runCmd.Flags().Int64Var(&numBanks, "num-banks", 4, "banks per bankgroup")
	runCmd.Flags().Int64Var(&numRows, "num-rows", 65536, "rows per bank")
	runCmd.Flags().Int64Var(&numCols, "num-cols", 1024, "columns per row")

	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runFrontend(cmd *cobra.Command, args []string) error {
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unrecognized log level %q, keeping previous level", logLevel)
	}

	if tracePath == "" {
		logrus.Fatalf("--path is required")
	}
	if numTokens < 0 {
		logrus.Fatalf("--num-tokens must be >= 0, got %d", numTokens)
	}
	if kernelSliceOpsPerToken < 0 {
		logrus.Fatalf("--kernel-slice-ops-per-token must be >= 0, got %d", kernelSliceOpsPerToken)
	}
	if clockRatio <= 0 {
		logrus.Fatalf("--clock-ratio must be > 0, got %d", clockRatio)
	}

	policyOpts := pim.PolicyOptions{
		BankPartitioningStart: kvCacheBanksStart,
		BankPartitioningCount: kvCacheBanksCount,
		MaxKVPerBank:          maxKVPerBank,
	}
	if cmd.Flags().Changed("locality-weight") && localityWeight >= 0 {
		policyOpts.LocalityWeight = &localityWeight
	}
	if cmd.Flags().Changed("activity-threshold-percent") && activityThresholdPercent >= 0 {
		policyOpts.ActivityThresholdPercent = &activityThresholdPercent
	}

	cfg := pim.NewFrontendConfig(tracePath, enableKVCache, staticWeightTracePath,
		numTokens, kernelSliceOpsPerToken, clockRatio, policyName, policyOpts)

	org := pim.NewOrganization([]pim.LevelSpec{
		{Name: "channel", Count: numChannels},
		{Name: "rank", Count: numRanks},
		{Name: "bankgroup", Count: numBankGroups},
		{Name: "bank", Count: numBanks},
		{Name: "row", Count: numRows},
		{Name: "col", Count: numCols},
	})

	frontend := pim.NewFrontend(cfg)
	if err := frontend.Load(); err != nil {
		logrus.Fatalf("loading trace: %v", err)
	}

	backend := pim.NewSimpleBackend(org, 0)
	frontend.Connect(backend, pim.SimpleCodeGen{})
	frontend.Expand()
	frontend.Synthesize()
	frontend.Stream()
	stats := frontend.Finalize()

	fmt.Printf("banks touched: %d\n", stats.Policy.BanksTouched)
	fmt.Printf("kv total_allocations: %d\n", stats.Policy.TotalAllocations)
	fmt.Printf("kv total_conflicts: %d\n", stats.Policy.TotalConflicts)
	fmt.Printf("tracker total_conflicts: %d / %d ops (%.2f%%)\n",
		stats.Conflict.TotalConflicts, stats.Conflict.TotalWeightOps+stats.Conflict.TotalKVOps, stats.ConflictRatePercent)

	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
