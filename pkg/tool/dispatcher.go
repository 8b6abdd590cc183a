package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Result is the normalized envelope for one tool execution. Data stays null
// on failure; ExecutionTime is wall-clock seconds and is recorded whether the
// call succeeded or failed.
type Result struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data"`
	Message       string      `json:"message"`
	ExecutionTime float64     `json:"execution_time"`
}

// BatchItem is the per-request result of a batch dispatch. Items whose tool
// name did not resolve carry only an error and no execution time; items that
// executed carry execution time whether they succeeded or failed.
type BatchItem struct {
	ToolName      string      `json:"tool_name"`
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	ExecutionTime *float64    `json:"execution_time,omitempty"`
}

// Execution is the record handed to observers after an executed dispatch.
type Execution struct {
	ToolName      string
	Success       bool
	Message       string
	ExecutionTime float64
	Timestamp     time.Time
}

// Observer receives a record per executed dispatch, fire-and-forget. Used for
// metrics, the execution history store and the event stream.
type Observer interface {
	ToolExecuted(rec Execution)
}

// Dispatcher validates parameters, runs the tool and wraps the outcome into
// an envelope. Every failure arising from a single call is converted into
// data; the only error it ever returns is ErrToolNotFound on the single-item
// path.
type Dispatcher struct {
	registry  *Registry
	logger    zerolog.Logger
	strict    bool
	observers []Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithStrictValidation enables the gojsonschema type/enum check after the
// required-key walk. Off by default: the minimal contract accepts anything
// with the required keys present, and strict mode must stay opt-in so it
// never shrinks the accepted-input set silently.
func WithStrictValidation(strict bool) DispatcherOption {
	return func(d *Dispatcher) { d.strict = strict }
}

// WithObserver attaches an execution observer.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one tool invocation. A missing tool is returned as
// ErrToolNotFound so the HTTP layer can answer 404 before any envelope
// exists; everything else lands in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]interface{}) (Result, error) {
	entry := d.registry.lookupEntry(name)
	if entry == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	res, _ := d.run(ctx, name, entry, params)
	return res, nil
}

// DispatchBatch runs an ordered sequence of requests, isolating per-item
// failures. The output always has exactly one item per input, in input
// order. Items are processed sequentially.
func (d *Dispatcher) DispatchBatch(ctx context.Context, requests []Request) []BatchItem {
	results := make([]BatchItem, 0, len(requests))

	for _, req := range requests {
		entry := d.registry.lookupEntry(req.ToolName)
		if entry == nil {
			d.logger.Warn().Str("tool", req.ToolName).Msg("Batch item references unknown tool")
			results = append(results, BatchItem{
				ToolName: req.ToolName,
				Success:  false,
				Error:    "Tool not found",
			})
			continue
		}

		res, failure := d.run(ctx, req.ToolName, entry, req.Parameters)
		item := BatchItem{
			ToolName:      req.ToolName,
			Success:       res.Success,
			ExecutionTime: &res.ExecutionTime,
		}
		if res.Success {
			item.Data = res.Data
		} else {
			// The batch error field carries the raw failure text; only the
			// single-item message carries the "Tool execution failed" prefix.
			item.Error = failure.Error()
		}
		results = append(results, item)
	}

	return results
}

// run executes one resolved tool. The second return is the raw failure, nil
// when the envelope is successful.
func (d *Dispatcher) run(ctx context.Context, name string, entry *registryEntry, params map[string]interface{}) (Result, error) {
	start := time.Now()
	if params == nil {
		params = map[string]interface{}{}
	}

	if err := entry.tool.Schema().Validate(params); err != nil {
		elapsed := time.Since(start).Seconds()
		d.logger.Error().Str("tool", name).Err(err).Msg("Parameter validation failed")
		return d.finish(name, Result{
			Success:       false,
			Message:       err.Error(),
			ExecutionTime: elapsed,
		}), err
	}

	if d.strict {
		if err := validateStrict(entry.compiled, params); err != nil {
			elapsed := time.Since(start).Seconds()
			d.logger.Error().Str("tool", name).Err(err).Msg("Strict parameter validation failed")
			return d.finish(name, Result{
				Success:       false,
				Message:       err.Error(),
				ExecutionTime: elapsed,
			}), err
		}
	}

	d.logger.Debug().Str("tool", name).Msg("Executing tool")

	data, err := safeExecute(ctx, entry.tool, params)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		d.logger.Error().
			Str("tool", name).
			Float64("execution_time", elapsed).
			Err(err).
			Msg("Tool execution failed")
		return d.finish(name, Result{
			Success:       false,
			Message:       fmt.Sprintf("Tool execution failed: %s", err.Error()),
			ExecutionTime: elapsed,
		}), err
	}

	d.logger.Debug().
		Str("tool", name).
		Float64("execution_time", elapsed).
		Msg("Tool execution completed")

	return d.finish(name, Result{
		Success:       true,
		Data:          data,
		Message:       "Tool executed successfully",
		ExecutionTime: elapsed,
	}), nil
}

// safeExecute confines panics from tool implementations so that no call can
// unwind past the dispatch boundary. A recovered panic becomes an ordinary
// execution failure.
func safeExecute(ctx context.Context, t Tool, params map[string]interface{}) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Execute(ctx, params)
}

func (d *Dispatcher) finish(name string, res Result) Result {
	rec := Execution{
		ToolName:      name,
		Success:       res.Success,
		Message:       res.Message,
		ExecutionTime: res.ExecutionTime,
		Timestamp:     time.Now(),
	}
	for _, o := range d.observers {
		o.ToolExecuted(rec)
	}
	return res
}

func validateStrict(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return fmt.Errorf("parameter validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
