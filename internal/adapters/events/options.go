package events

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithCapacity sets the buffer capacity of the bus.
func WithCapacity(capacity int) Option {
	return func(b *Bus) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}
