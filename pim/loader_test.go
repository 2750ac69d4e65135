package pim

import "testing"

func TestLoadTrace_DirectOps(t *testing.T) {
	// GIVEN a trace with one op of each directly-recognized opcode
	path := writeTrace(t, "R 0,1,2\nW 0,1,3\nC 0,0,0\nSR 1,0,0\nSW 1,0,1\nBR 2,0,0\nBW 2,0,1\n")

	// WHEN loaded
	trace, err := LoadTrace(path)
	if err != nil {
		t.Fatalf("LoadTrace: %v", err)
	}

	// THEN each line became one entry with the matching opcode, in order
	want := []OpCode{OpRead, OpWrite, OpCompute, OpSubarrayRead, OpSubarrayWrite, OpBankRead, OpBankWrite}
	if len(trace.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(trace.Entries), len(want))
	}
	for i, op := range want {
		if trace.Entries[i].Op != op {
			t.Errorf("entry %d: Op = %q, want %q", i, trace.Entries[i].Op, op)
		}
	}
}

func TestLoadTrace_KernelBlock_SealsIntoDescriptorAndSyntheticOp(t *testing.T) {
	// GIVEN a gemm...end block with two address-bearing body lines
	path := writeTrace(t, "gemm\n1,2,3\n4,5,6\nend\n")

	// WHEN loaded
	trace, err := LoadTrace(path)
	if err != nil {
		t.Fatalf("LoadTrace: %v", err)
	}

	// THEN one KernelDescriptor is recorded with both body lines as Addrs
	if len(trace.Kernels) != 1 {
		t.Fatalf("got %d kernels, want 1", len(trace.Kernels))
	}
	if trace.Kernels[0].Kind != "gemm" {
		t.Errorf("Kind = %q, want gemm", trace.Kernels[0].Kind)
	}
	if len(trace.Kernels[0].Addrs) != 2 {
		t.Errorf("got %d addrs, want 2", len(trace.Kernels[0].Addrs))
	}

	// AND exactly one synthetic OpKernel entry references it by index
	if len(trace.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(trace.Entries))
	}
	if trace.Entries[0].Op != OpKernel || trace.Entries[0].KernelIndex != 0 {
		t.Errorf("entry = %+v, want OpKernel referencing kernel 0", trace.Entries[0])
	}
}

func TestLoadTrace_UnrecognizedOpcode_IsFatalConfigurationError(t *testing.T) {
	// GIVEN a line with an opcode outside the recognized set, outside any kernel block
	path := writeTrace(t, "X 0,0,0\n")

	// WHEN loaded
	_, err := LoadTrace(path)

	// THEN it fails with a ConfigurationError, not a silent skip (§4.5: malformed
	// lines in the high-level trace are fatal, unlike the static weight loader)
	if err == nil {
		t.Fatal("expected an error for an unrecognized opcode")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("err = %T, want *ConfigurationError", err)
	}
}

func TestLoadTrace_EndWithoutOpenBlock_IsFatal(t *testing.T) {
	path := writeTrace(t, "end\n")

	_, err := LoadTrace(path)
	if err == nil {
		t.Fatal("expected an error for a stray \"end\"")
	}
}

func TestLoadTrace_UnsealedKernelBlock_IsFatal(t *testing.T) {
	// GIVEN a kernel block that is never closed with "end"
	path := writeTrace(t, "conv2d\n1,2,3\n")

	// WHEN loaded
	_, err := LoadTrace(path)

	// THEN it is a fatal configuration error
	if err == nil {
		t.Fatal("expected an error for an unsealed kernel block")
	}
}

func TestLoadTrace_MissingFile_IsConfigurationError(t *testing.T) {
	_, err := LoadTrace("/nonexistent/path/does/not/exist.txt")
	if err == nil {
		t.Fatal("expected an error for a missing trace file")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("err = %T, want *ConfigurationError", err)
	}
}
