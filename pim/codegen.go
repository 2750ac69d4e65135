package pim

// KernelDescriptor captures one sealed conv2d/gemm...end block from the
// upstream trace: its kind and the address tuples accumulated between
// the opening line and "end".
type KernelDescriptor struct {
	Kind  string
	Addrs []AddressVector
}

// KernelCodeGen expands a sealed kernel block into the concrete
// Operations it performs. The embedding program supplies the actual
// lowering; this package only needs to invoke it at the right point in
// the stream and splice the result in.
type KernelCodeGen interface {
	// CodegenKernel lowers descriptor into a flat operation sequence.
	CodegenKernel(descriptor KernelDescriptor) []Operation
}
