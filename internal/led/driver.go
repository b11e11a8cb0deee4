package led

// Driver pushes a symbol stream onto one strip's data line.
type Driver interface {
	// Transmit blocks until the stream, up to its end marker, is on the
	// wire. It does not wait for the latch.
	Transmit(syms []Symbol) error
	// Close releases resources.
	Close() error
}
