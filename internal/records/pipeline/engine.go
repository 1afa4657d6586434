package pipeline

import (
	"context"
	"fmt"
	apperrors "sicakap/pkg/errors"
	"sicakap/pkg/logger"
)

// Step is one named stage of a flow. A step that returns an error stops the flow.
type Step[T any] struct {
	Name    string
	Execute func(ctx context.Context, state T) error
}

func NewStep[T any](name string, execute func(ctx context.Context, state T) error) *Step[T] {
	return &Step[T]{
		Name:    name,
		Execute: execute,
	}
}

type Flow[T any] struct {
	name  string
	steps []*Step[T]
}

func NewFlow[T any](name string, steps ...*Step[T]) *Flow[T] {
	return &Flow[T]{name: name, steps: steps}
}

func (f *Flow[T]) Name() string {
	return f.name
}

func (f *Flow[T]) Steps() []*Step[T] {
	return f.steps
}

// StepError carries the name of the step that failed. It unwraps to the step's own error,
// so AppError codes survive.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Engine[T any] struct {
	flows map[string]*Flow[T]
	log   *logger.Logger
}

func NewEngine[T any](log *logger.Logger, flows ...*Flow[T]) *Engine[T] {
	m := map[string]*Flow[T]{}
	for _, f := range flows {
		m[f.Name()] = f
	}
	return &Engine[T]{flows: m, log: log}
}

// Run executes the named flow's steps in order against state.
func (e *Engine[T]) Run(ctx context.Context, flowName string, state T) error {
	f, exists := e.flows[flowName]
	if !exists {
		return apperrors.Internal(fmt.Sprintf("unsupported flow: %v", flowName), nil)
	}

	for _, step := range f.Steps() {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: step.Name, Err: apperrors.Timeout("submission canceled before " + step.Name)}
		}
		if err := step.Execute(ctx, state); err != nil {
			e.log.Debug("Pipeline step failed", "flow", flowName, "step", step.Name, "error", err)
			return &StepError{Step: step.Name, Err: err}
		}
		e.log.Debug("Pipeline step completed", "flow", flowName, "step", step.Name)
	}
	return nil
}
