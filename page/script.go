package page

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ExecuteScript runs a function body in the current frame. The body reads
// its arguments from arguments[i] and returns a value with return.
func (b *Base) ExecuteScript(body string, args ...any) (any, error) {
	result, err := b.session.ExecuteScript(body, args...)
	return result, b.pass("execute script", err)
}

// Evaluate runs a playwright expression or arrow function in the current
// frame.
func (b *Base) Evaluate(expression string, arg ...any) (any, error) {
	result, err := b.session.Evaluate(expression, arg...)
	return result, b.pass("evaluate", err)
}

// EvaluateInto evaluates expression on b and decodes the result into a T.
// Numbers and strings are converted to the field types of T where needed.
func EvaluateInto[T any](b *Base, expression string, arg ...any) (T, error) {
	var out T
	result, err := b.Evaluate(expression, arg...)
	if err != nil {
		return out, err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(result); err != nil {
		return out, b.pass("evaluate", fmt.Errorf("decode %T: %w", out, err))
	}
	return out, nil
}
