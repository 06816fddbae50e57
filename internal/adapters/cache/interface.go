package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// Cache stores values by key. A missing key is claimed by the first caller, and other
// callers wait until the claimer sets or releases it.
type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}
