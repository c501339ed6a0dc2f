package domain

// Result tags a value with the store that produced it.
type Result[T any] struct {
	Value  T      `json:"value"`
	Source Origin `json:"source"`
}

func FromAPI[T any](v T) Result[T]   { return Result[T]{Value: v, Source: OriginAPI} }
func FromLocal[T any](v T) Result[T] { return Result[T]{Value: v, Source: OriginLocal} }
