package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Checker is a dependency the readiness check pings.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkerFunc struct {
	name  string
	check func(ctx context.Context) error
}

func NewChecker(name string, check func(ctx context.Context) error) Checker {
	return checkerFunc{name: name, check: check}
}

func (c checkerFunc) Name() string {
	return c.name
}

func (c checkerFunc) Check(ctx context.Context) error {
	return c.check(ctx)
}
