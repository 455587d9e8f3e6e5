// Package visibility decides whether a layout node is shown from its
// condition option and the current form data.
package visibility

// Evaluator reports whether condition holds for the node at nodePath.
type Evaluator interface {
	Eval(nodePath, condition string, ctx Context) (bool, error)
}

// Context provides the inputs a condition reads. Data is the current form
// data. Indices are the array indices of the node being evaluated, used to
// make "[]" path segments concrete, outermost first. Extras carries values
// outside the data, reachable with the "extras." prefix.
type Context struct {
	Data    any
	Indices []int
	Extras  map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(nodePath, condition string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(nodePath, condition string, ctx Context) (bool, error) {
	return fn(nodePath, condition, ctx)
}

// Always is the evaluator that shows every node.
var Always Evaluator = EvaluatorFunc(func(string, string, Context) (bool, error) { return true, nil })
