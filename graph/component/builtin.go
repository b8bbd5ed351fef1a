package component

import (
	"context"
	"fmt"
	"strings"
)

// TextInput surfaces a caller-supplied run input into the graph.
//
// The engine writes the run input value to the "input_value" parameter
// before building; the component simply republishes it on its "text"
// output. This is the usual entry vertex of conversational graphs.
type TextInput struct{}

// RunInputParam implements RunInput.
func (*TextInput) RunInputParam() string { return "input_value" }

// Build implements Component.
func (*TextInput) Build(_ context.Context, req Request) (Output, error) {
	return Output{Values: map[string]any{"text": req.Param("input_value", "")}}, nil
}

// TextOutput terminates a chain, passing its "text" input slot through to a
// "text" output so it can be flagged as a graph output vertex.
type TextOutput struct{}

// Build implements Component.
func (*TextOutput) Build(_ context.Context, req Request) (Output, error) {
	v := req.Input("text")
	if v == nil {
		v = req.Param("input_value", "")
	}
	return Output{Values: map[string]any{"text": v}}, nil
}

// Template renders a parameterized text template by substituting
// {placeholder} markers with input slot values.
//
// Each input slot name may appear as {name} in the template; the first
// successful value bound to the slot replaces it. Missing slots render as
// empty strings.
type Template struct {
	template string
}

// NewTemplate creates a Template component with the given template text.
func NewTemplate(template string) *Template {
	return &Template{template: template}
}

// Build implements Component.
func (t *Template) Build(_ context.Context, req Request) (Output, error) {
	tpl := t.template
	if tpl == "" {
		tpl = req.StringParam("template", "")
	}

	rendered := tpl
	for slot, vals := range req.Inputs {
		if len(vals) == 0 {
			continue
		}
		rendered = strings.ReplaceAll(rendered, "{"+slot+"}", fmt.Sprintf("%v", vals[0]))
	}

	return Output{Values: map[string]any{"text": rendered}}, nil
}

// Loop is the built-in loop construct component.
//
// The engine owns the iteration state (captured collection, index,
// accumulation) in its run-scoped context store; Loop only decides what each
// visit emits: the current item on "item" while iterating, the full
// accumulation on "done" when the collection is exhausted. Iterating builds
// signal LoopContinue so the scheduler reopens the downstream span.
type Loop struct{}

// CollectionSlot implements LoopAware.
func (*Loop) CollectionSlot() string { return "data" }

// FeedbackSlot implements LoopAware.
func (*Loop) FeedbackSlot() string { return "feedback" }

// ItemOutput implements LoopAware.
func (*Loop) ItemOutput() string { return "item" }

// DoneOutput implements LoopAware.
func (*Loop) DoneOutput() string { return "done" }

// Build implements Component.
func (*Loop) Build(_ context.Context, req Request) (Output, error) {
	if req.Loop == nil {
		return Output{}, fmt.Errorf("loop component %s built without a loop frame", req.VertexID)
	}

	switch req.Loop.Phase {
	case LoopIterating:
		return Output{
			Values:       map[string]any{"item": req.Loop.Item},
			LoopContinue: true,
		}, nil
	case LoopAggregating:
		return Output{
			Values: map[string]any{"done": req.Loop.Aggregated},
		}, nil
	default:
		return Output{}, fmt.Errorf("loop component %s: unknown phase %d", req.VertexID, req.Loop.Phase)
	}
}
