package pim

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TraceEntry is one parsed line (or sealed kernel block) from the
// upstream trace, in source order.
type TraceEntry struct {
	Op          OpCode
	Addr        AddressVector
	KernelIndex int // valid when Op == OpKernel; index into LoadedTrace.Kernels
}

// LoadedTrace is the full parsed trace: the flat entry stream plus the
// side table of kernel descriptors referenced by OpKernel entries.
type LoadedTrace struct {
	Entries []TraceEntry
	Kernels []KernelDescriptor
}

var kernelStartTokens = map[string]string{
	"conv2d": "conv2d",
	"gemm":   "gemm",
}

// LoadTrace parses the trace file at path into a LoadedTrace.
//
// Each line is either a direct op ("R"/"W"/"C"/"SR"/"SW"/"BR"/"BW"
// followed by a comma-separated address tuple), the start of a kernel
// block ("conv2d" or "gemm", optionally followed by descriptor fields),
// an address line accumulated inside a kernel block, or "end" sealing the
// current kernel block. A sealed kernel block becomes one KernelDescriptor
// plus one OpKernel entry whose KernelIndex names it.
//
// A malformed line — an unrecognized opcode outside a kernel block, or
// "end" with no open block — is a ConfigurationError: the trace is
// assumed to come from a trusted upstream tool, so a parse failure means
// the input itself is wrong, not a transient condition to paper over.
func LoadTrace(path string) (*LoadedTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("opening trace %q: %v", path, err)}
	}
	defer f.Close()

	trace := &LoadedTrace{}
	var inKernel bool
	var kernelKind string
	var kernelAddrs []AddressVector

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		head := fields[0]

		if inKernel {
			if head == "end" {
				trace.Kernels = append(trace.Kernels, KernelDescriptor{Kind: kernelKind, Addrs: kernelAddrs})
				kernelIdx := len(trace.Kernels) - 1
				trace.Entries = append(trace.Entries, TraceEntry{Op: OpKernel, Addr: AddressVector{int64(kernelIdx)}, KernelIndex: kernelIdx})
				inKernel = false
				kernelKind = ""
				kernelAddrs = nil
				continue
			}
			addr, err := parseAddr(fields, 0)
			if err != nil {
				return nil, &ConfigurationError{Detail: fmt.Sprintf("line %d: %v", lineNo, err)}
			}
			kernelAddrs = append(kernelAddrs, addr)
			continue
		}

		if _, ok := kernelStartTokens[head]; ok {
			inKernel = true
			kernelKind = head
			kernelAddrs = nil
			continue
		}
		if head == "end" {
			return nil, &ConfigurationError{Detail: fmt.Sprintf("line %d: \"end\" with no open kernel block", lineNo)}
		}

		op, ok := opcodeByToken[head]
		if !ok {
			return nil, &ConfigurationError{Detail: fmt.Sprintf("line %d: unrecognized opcode %q", lineNo, head)}
		}
		addr, err := parseAddr(fields, 1)
		if err != nil {
			return nil, &ConfigurationError{Detail: fmt.Sprintf("line %d: %v", lineNo, err)}
		}
		trace.Entries = append(trace.Entries, TraceEntry{Op: op, Addr: addr})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("reading trace %q: %v", path, err)}
	}
	if inKernel {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("kernel block %q never sealed with \"end\"", kernelKind)}
	}

	return trace, nil
}

// parseAddr splits fields[idx] on commas into an AddressVector.
func parseAddr(fields []string, idx int) (AddressVector, error) {
	if idx >= len(fields) {
		return nil, fmt.Errorf("missing address field")
	}
	parts := strings.Split(fields[idx], ",")
	addr := make(AddressVector, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address component %q: %w", p, err)
		}
		addr[i] = v
	}
	return addr, nil
}
