package memo

import "context"

// The Wrap helpers turn a fetcher into a same-signature function with
// coalescing and caching applied, deriving keys from the positional
// arguments with KeyOf. Each wrapper owns a private Group, so wrapped
// functions never share key space.

// Wrap0 wraps a no-argument fetcher.
func Wrap0[T any](fn func(context.Context) (T, error), opts ...Option) func(context.Context, ...CallOption) (T, error) {
	g := NewGroup[T](opts...)
	return func(ctx context.Context, copts ...CallOption) (T, error) {
		return g.Do(ctx, KeyOf(), fn, copts...)
	}
}

// Wrap1 wraps a one-argument fetcher.
func Wrap1[A, T any](fn func(context.Context, A) (T, error), opts ...Option) func(context.Context, A, ...CallOption) (T, error) {
	g := NewGroup[T](opts...)
	return func(ctx context.Context, a A, copts ...CallOption) (T, error) {
		return g.Do(ctx, KeyOf(a), func(ctx context.Context) (T, error) {
			return fn(ctx, a)
		}, copts...)
	}
}

// Wrap2 wraps a two-argument fetcher.
func Wrap2[A, B, T any](fn func(context.Context, A, B) (T, error), opts ...Option) func(context.Context, A, B, ...CallOption) (T, error) {
	g := NewGroup[T](opts...)
	return func(ctx context.Context, a A, b B, copts ...CallOption) (T, error) {
		return g.Do(ctx, KeyOf(a, b), func(ctx context.Context) (T, error) {
			return fn(ctx, a, b)
		}, copts...)
	}
}

// Wrap3 wraps a three-argument fetcher.
func Wrap3[A, B, C, T any](fn func(context.Context, A, B, C) (T, error), opts ...Option) func(context.Context, A, B, C, ...CallOption) (T, error) {
	g := NewGroup[T](opts...)
	return func(ctx context.Context, a A, b B, c C, copts ...CallOption) (T, error) {
		return g.Do(ctx, KeyOf(a, b, c), func(ctx context.Context) (T, error) {
			return fn(ctx, a, b, c)
		}, copts...)
	}
}
