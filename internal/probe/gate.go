package probe

import "context"

// Gate serializes probe cycles against one Prober. Callers queue on the
// gate; a caller whose ctx ends while waiting gives up without probing.
// A cycle that has started always runs to completion.
type Gate struct {
	inner Prober
	sem   chan struct{}
}

func NewGate(inner Prober) *Gate {
	return &Gate{inner: inner, sem: make(chan struct{}, 1)}
}

func (g *Gate) Probe(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-g.sem }()
	return g.inner.Probe(context.WithoutCancel(ctx))
}
