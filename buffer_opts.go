package binfile

// BufferOption configures a Buffer.
type BufferOption func(*bufferConfig)

type bufferConfig struct {
	offset    int64
	length    int64
	lengthSet bool
}

// WithDataOffset biases every offset by off, exposing data[off:] as the
// buffer's coordinate space.
func WithDataOffset(off int64) BufferOption {
	return func(c *bufferConfig) {
		c.offset = off
	}
}

// WithDataLength limits the addressable length to n bytes.
// By default the buffer extends to the end of the slice.
func WithDataLength(n int64) BufferOption {
	return func(c *bufferConfig) {
		c.length = n
		c.lengthSet = true
	}
}
