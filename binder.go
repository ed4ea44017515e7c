package crossdb

import "fmt"

// bindNamed compiles q and lowers the name-keyed parameter map onto the
// compiled positional slots. It returns the rendered text and a positional
// array whose length always equals the compiled slot count, unset slots nil.
//
// Any name absent from the compiled mapping aborts the whole bind before
// anything executes; silently ignoring it would run the statement with a
// nil in a slot the caller believed was bound.
func bindNamed(cmp Compiler, q Query, params map[string]any) (string, []any, *Error) {
	compiled, err := cmp.Compile(q)
	if err != nil {
		return "", nil, wrapError(SyntaxError, err)
	}
	args, berr := bindCompiled(compiled, params)
	if berr != nil {
		return "", nil, berr
	}
	return compiled.Text, args, nil
}

// bindCompiled is the mapping step alone, reused by prepared statements
// whose query was compiled at prepare time. Binding is complete in both
// directions: every supplied name must be mapped, and every mapped name must
// be supplied.
func bindCompiled(compiled Compiled, params map[string]any) ([]any, *Error) {
	for name := range compiled.Params {
		if _, ok := params[name]; !ok {
			return nil, newError(SyntaxError, errFailedParamMap)
		}
	}
	args := make([]any, compiled.Slots)
	for name, value := range params {
		slots, ok := compiled.Params[name]
		if !ok {
			return nil, newError(SyntaxError, errFailedParamMap)
		}
		for _, slot := range slots {
			if slot < 1 || slot > compiled.Slots {
				return nil, newError(SyntaxError,
					fmt.Sprintf("parameter %q mapped to slot %d of %d", name, slot, compiled.Slots))
			}
			args[slot-1] = value
		}
	}
	return args, nil
}
