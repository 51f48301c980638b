package queryserver

import (
	"context"

	"github.com/dop251/goja"
	"github.com/go-logr/logr"

	"github.com/l7mp/supercouch/pkg/sset"
)

// Config is the engine's process-wide configuration, populated once from
// CLI flags and never mutated after construction.
type Config struct {
	// EmitSSet, when true, also returns $SSET emissions as normal view
	// rows (a backup useful for rebuilding the index). Default: hidden.
	EmitSSet bool
}

// Engine is the query-server protocol engine: per process, it holds the
// ordered list of registered map functions, the host-supplied state and the
// process configuration. Emissions are buffered in locals of runOne, fresh
// for every function evaluation. Everything but Config is re-initialized on
// every "reset" message from the host.
type Engine struct {
	config  Config
	service sset.Service
	log     logr.Logger

	functions []*mapFunc
	byHash    map[string]*mapFunc
	state     any
}

// NewEngine constructs a ready engine bound to a sorted-set service.
func NewEngine(config Config, service sset.Service, log logr.Logger) *Engine {
	e := &Engine{config: config, service: service, log: log}
	e.resetFunctions()
	return e
}

func (e *Engine) resetFunctions() {
	e.functions = nil
	e.byHash = make(map[string]*mapFunc)
	e.state = nil
}

// Reset discards registered functions and replaces engine state, returning
// to a fresh ready state. It never fails.
func (e *Engine) Reset(state any) {
	e.resetFunctions()
	e.state = state
}

// AddFunction registers a map function's source text, reusing the cached
// compiled function for duplicate source.
func (e *Engine) AddFunction(sourceText string) error {
	hash := digestSource(sourceText)
	if fn, ok := e.byHash[hash]; ok {
		e.functions = append(e.functions, fn)
		return nil
	}

	fn, err := compileMapFunc(sourceText)
	if err != nil {
		return err
	}
	e.byHash[hash] = fn
	e.functions = append(e.functions, fn)
	return nil
}

// MapDoc runs every registered function against doc, collects normal view
// emissions per function and diverted $SSET operations across all
// functions, and commits the diverted operations as one atomic batch to
// the sorted-set service before returning. The returned slice has one
// element (the function's view-row emissions) per registered function, in
// registration order. The second return value carries every log() message
// raised while evaluating doc, in emission order, for the caller to also
// surface as ["log", message] wire lines.
func (e *Engine) MapDoc(ctx context.Context, doc any) ([][]emission, []string, error) {
	rows := make([][]emission, len(e.functions))
	var ops []sset.Operation
	var logs []string

	for i, fn := range e.functions {
		funcRows, funcOps, funcLogs, err := e.runOne(fn, doc)
		logs = append(logs, funcLogs...)
		if err != nil {
			return nil, logs, err
		}
		rows[i] = funcRows
		ops = append(ops, funcOps...)
	}

	if len(ops) > 0 {
		if err := e.service.Process(ctx, ops); err != nil {
			return nil, logs, err
		}
	}

	return rows, logs, nil
}

// runOne evaluates a single function against doc, draining its emission
// buffer into view rows (filtered per the emit-sset flag) and diverted
// sorted-set operations. Every log() call the function makes is recorded to
// the logger and also collected so the protocol layer can echo it on the
// wire.
func (e *Engine) runOne(fn *mapFunc, doc any) ([]emission, []sset.Operation, []string, error) {
	var rows []emission
	var ops []sset.Operation
	var logs []string
	var classifyErr error

	err := fn.run(doc,
		func(keyV, valueV goja.Value) {
			if classifyErr != nil {
				return
			}
			key := normalizeEmitKey(keyV.Export())
			value := valueV.Export()

			op, diverted, err := classifyEmission(emission{Key: key, Value: value})
			if err != nil {
				classifyErr = err
				return
			}
			if diverted {
				ops = append(ops, op)
				if e.config.EmitSSet {
					rows = append(rows, emission{Key: key, Value: value})
				}
				return
			}
			rows = append(rows, emission{Key: key, Value: value})
		},
		func(msg string) {
			e.log.WithName("user").Info(msg)
			logs = append(logs, msg)
		},
	)
	if err != nil {
		return nil, nil, logs, err
	}
	if classifyErr != nil {
		return nil, nil, logs, classifyErr
	}

	return rows, ops, logs, nil
}
