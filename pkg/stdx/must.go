package stdx

// Must0 panics if the provided error is not nil. It is intended for
// initialization paths where an error is a programming mistake rather than a
// runtime condition.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, panicking if err is not nil. It allows single-expression
// initialization of values whose constructors return an error.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Must2 returns both values, panicking if err is not nil.
func Must2[T any, V any](t T, v V, err error) (T, V) {
	if err != nil {
		panic(err)
	}
	return t, v
}
