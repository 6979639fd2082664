package evaluator

import (
	"math"
	"unicode/utf8"

	"github.com/pilelang/pile/pkg/pile/ast"
	"github.com/pilelang/pile/pkg/pile/lexer"
)

// evalOperation dispatches one operator or stack-manipulation
// instruction. For every binary operator the first-popped operand is
// the left one: `2 10 /` computes 10 / 2.
func evalOperation(node *ast.Operation, env *Environment) Object {
	switch node.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpExp:
		return evalArithmetic(node, env)
	case ast.OpGt, ast.OpLt, ast.OpGe, ast.OpLe:
		return evalComparison(node, env)
	case ast.OpEq, ast.OpNe:
		return evalEquality(node, env)
	case ast.OpShl, ast.OpShr:
		return evalShift(node, env)
	case ast.OpBor, ast.OpBand:
		return evalBitwiseBinary(node, env)
	case ast.OpBnot:
		return evalBitwiseNot(node, env)
	case ast.OpIsNil:
		return evalIsNil(node, env)
	case ast.OpIndex:
		return evalIndex(node, env)
	case ast.OpAssignAtIndex:
		return evalAssignAtIndex(node, env)
	case ast.OpDup:
		return evalDup(node, env)
	case ast.OpDrop:
		_, sig := pop1(node, env)
		return sig
	case ast.OpSwap:
		return evalSwap(node, env)
	case ast.OpOver:
		return evalOver(node, env)
	case ast.OpRot:
		return evalRot(node, env)
	case ast.OpTrace:
		return evalTrace(node, env)
	}
	return nil
}

// evalTrace prints the top value to the error stream without popping
// it, so a pipeline can be inspected mid-flight.
func evalTrace(node *ast.Operation, env *Environment) Object {
	top, ok := env.Stack.Peek()
	if !ok {
		return underflow(node, env, 1)
	}
	env.ErrLogger.LogLine(top.Inspect())
	return nil
}

func underflow(node *ast.Operation, env *Environment, want int) *Error {
	return newError("RUN-0001", node.Token, env.Filename, map[string]any{
		"Op":   node.Op.String(),
		"Want": want,
		"Got":  env.Stack.Len(),
	})
}

func typeMismatch(op string, tok lexer.Token, env *Environment, got Object) *Error {
	return newError("RUN-0002", tok, env.Filename, map[string]any{
		"Op":  op,
		"Got": TypeName(got),
	})
}

func pop1(node *ast.Operation, env *Environment) (Object, Object) {
	value, ok := env.Stack.Pop()
	if !ok {
		return nil, underflow(node, env, 1)
	}
	return value, nil
}

// pop2 pops the left then the right operand of a binary operator.
func pop2(node *ast.Operation, env *Environment) (left, right Object, sig Object) {
	if env.Stack.Len() < 2 {
		return nil, nil, underflow(node, env, 2)
	}
	left, _ = env.Stack.Pop()
	right, _ = env.Stack.Pop()
	return left, right, nil
}

func popNumbers(node *ast.Operation, env *Environment) (left, right float64, sig Object) {
	l, r, sig := pop2(node, env)
	if sig != nil {
		return 0, 0, sig
	}
	ln, ok := l.(*Number)
	if !ok {
		return 0, 0, typeMismatch(node.Op.String(), node.Token, env, l)
	}
	rn, ok := r.(*Number)
	if !ok {
		return 0, 0, typeMismatch(node.Op.String(), node.Token, env, r)
	}
	return ln.Value, rn.Value, nil
}

func evalArithmetic(node *ast.Operation, env *Environment) Object {
	left, right, sig := popNumbers(node, env)
	if sig != nil {
		return sig
	}

	var result float64
	switch node.Op {
	case ast.OpAdd:
		result = left + right
	case ast.OpSub:
		result = left - right
	case ast.OpMul:
		result = left * right
	case ast.OpDiv:
		if right == 0 {
			return newError("RUN-0004", node.Token, env.Filename, nil)
		}
		result = left / right
	case ast.OpMod:
		if right == 0 {
			return newError("RUN-0004", node.Token, env.Filename, nil)
		}
		result = math.Mod(left, right)
	case ast.OpExp:
		result = math.Pow(left, right)
	}

	env.Stack.Push(&Number{Value: result})
	return nil
}

// evalComparison orders two numbers or two strings. Mixed operand
// types are a runtime error, unlike equality.
func evalComparison(node *ast.Operation, env *Environment) Object {
	left, right, sig := pop2(node, env)
	if sig != nil {
		return sig
	}

	var result bool
	switch l := left.(type) {
	case *Number:
		r, ok := right.(*Number)
		if !ok {
			return typeMismatch(node.Op.String(), node.Token, env, right)
		}
		result = compareOrdered(node.Op, l.Value, r.Value)
	case *String:
		r, ok := right.(*String)
		if !ok {
			return typeMismatch(node.Op.String(), node.Token, env, right)
		}
		result = compareOrdered(node.Op, l.Value, r.Value)
	default:
		return typeMismatch(node.Op.String(), node.Token, env, left)
	}

	env.Stack.Push(nativeBool(result))
	return nil
}

func compareOrdered[T float64 | string](op ast.OpKind, left, right T) bool {
	switch op {
	case ast.OpGt:
		return left > right
	case ast.OpLt:
		return left < right
	case ast.OpGe:
		return left >= right
	case ast.OpLe:
		return left <= right
	}
	return false
}

func evalEquality(node *ast.Operation, env *Environment) Object {
	left, right, sig := pop2(node, env)
	if sig != nil {
		return sig
	}

	equal := objectsEqual(left, right)
	if node.Op == ast.OpNe {
		equal = !equal
	}
	env.Stack.Push(nativeBool(equal))
	return nil
}

// objectsEqual compares structurally: arrays element by element,
// everything else by value. Different types are unequal, never an
// error.
func objectsEqual(a, b Object) bool {
	switch a := a.(type) {
	case *Number:
		if b, ok := b.(*Number); ok {
			return a.Value == b.Value
		}
	case *String:
		if b, ok := b.(*String); ok {
			return a.Value == b.Value
		}
	case *Boolean:
		if b, ok := b.(*Boolean); ok {
			return a.Value == b.Value
		}
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *Array:
		b, ok := b.(*Array)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !objectsEqual(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// integral converts a Number operand to int64, rejecting fractions.
func integral(op string, tok lexer.Token, env *Environment, obj Object) (int64, Object) {
	number, ok := obj.(*Number)
	if !ok {
		return 0, typeMismatch(op, tok, env, obj)
	}
	if number.Value != math.Trunc(number.Value) {
		return 0, typeMismatch(op, tok, env, obj)
	}
	return int64(number.Value), nil
}

func evalShift(node *ast.Operation, env *Environment) Object {
	left, right, sig := pop2(node, env)
	if sig != nil {
		return sig
	}
	l, sig := integral(node.Op.String(), node.Token, env, left)
	if sig != nil {
		return sig
	}
	r, sig := integral(node.Op.String(), node.Token, env, right)
	if sig != nil {
		return sig
	}

	var result int64
	if node.Op == ast.OpShl {
		result = l << uint64(r)
	} else {
		result = l >> uint64(r)
	}
	env.Stack.Push(&Number{Value: float64(result)})
	return nil
}

// evalBitwiseBinary handles | and &: bitwise on integral numbers,
// logical on booleans.
func evalBitwiseBinary(node *ast.Operation, env *Environment) Object {
	left, right, sig := pop2(node, env)
	if sig != nil {
		return sig
	}

	if lb, ok := left.(*Boolean); ok {
		rb, ok := right.(*Boolean)
		if !ok {
			return typeMismatch(node.Op.String(), node.Token, env, right)
		}
		if node.Op == ast.OpBor {
			env.Stack.Push(nativeBool(lb.Value || rb.Value))
		} else {
			env.Stack.Push(nativeBool(lb.Value && rb.Value))
		}
		return nil
	}

	l, sig := integral(node.Op.String(), node.Token, env, left)
	if sig != nil {
		return sig
	}
	r, sig := integral(node.Op.String(), node.Token, env, right)
	if sig != nil {
		return sig
	}

	var result int64
	if node.Op == ast.OpBor {
		result = l | r
	} else {
		result = l & r
	}
	env.Stack.Push(&Number{Value: float64(result)})
	return nil
}

func evalBitwiseNot(node *ast.Operation, env *Environment) Object {
	value, sig := pop1(node, env)
	if sig != nil {
		return sig
	}

	if b, ok := value.(*Boolean); ok {
		env.Stack.Push(nativeBool(!b.Value))
		return nil
	}

	n, sig := integral(node.Op.String(), node.Token, env, value)
	if sig != nil {
		return sig
	}
	env.Stack.Push(&Number{Value: float64(^n)})
	return nil
}

func evalIsNil(node *ast.Operation, env *Environment) Object {
	value, sig := pop1(node, env)
	if sig != nil {
		return sig
	}
	_, isNil := value.(*Nil)
	env.Stack.Push(nativeBool(isNil))
	return nil
}

// evalIndex pops an index then its target: `arr 2 @` pushes element
// two of arr. Indexing a string pushes the one-character string at
// that position.
func evalIndex(node *ast.Operation, env *Environment) Object {
	indexObj, target, sig := pop2(node, env)
	if sig != nil {
		return sig
	}
	index, sig := integral(node.Op.String(), node.Token, env, indexObj)
	if sig != nil {
		return sig
	}

	switch target := target.(type) {
	case *Array:
		if index < 0 || index >= int64(len(target.Elements)) {
			return newError("RUN-0003", node.Token, env.Filename, map[string]any{
				"Index":  index,
				"Length": len(target.Elements),
			})
		}
		env.Stack.Push(target.Elements[index])
		return nil

	case *String:
		runes := []rune(target.Value)
		if index < 0 || index >= int64(len(runes)) {
			return newError("RUN-0003", node.Token, env.Filename, map[string]any{
				"Index":  index,
				"Length": len(runes),
			})
		}
		env.Stack.Push(&String{Value: string(runes[index])})
		return nil
	}

	return typeMismatch(node.Op.String(), node.Token, env, target)
}

// evalAssignAtIndex pops a value, an index, and a target, and stores
// the value in place: `arr 2 99 !` sets element two to 99. Arrays and
// strings are heap-shared, so every binding of the target observes
// the write. For a string the value must be a code point; writing an
// invalid one stores NUL.
func evalAssignAtIndex(node *ast.Operation, env *Environment) Object {
	if env.Stack.Len() < 3 {
		return underflow(node, env, 3)
	}
	value, _ := env.Stack.Pop()
	indexObj, _ := env.Stack.Pop()
	targetObj, _ := env.Stack.Pop()

	index, sig := integral(node.Op.String(), node.Token, env, indexObj)
	if sig != nil {
		return sig
	}

	switch target := targetObj.(type) {
	case *Array:
		if index < 0 || index >= int64(len(target.Elements)) {
			return newError("RUN-0003", node.Token, env.Filename, map[string]any{
				"Index":  index,
				"Length": len(target.Elements),
			})
		}
		target.Elements[index] = value
		return nil

	case *String:
		code, sig := integral(node.Op.String(), node.Token, env, value)
		if sig != nil {
			return sig
		}
		runes := []rune(target.Value)
		if index < 0 || index >= int64(len(runes)) {
			return newError("RUN-0003", node.Token, env.Filename, map[string]any{
				"Index":  index,
				"Length": len(runes),
			})
		}
		r := rune(code)
		if !utf8.ValidRune(r) {
			r = 0
		}
		runes[index] = r
		target.Value = string(runes)
		return nil
	}

	return typeMismatch(node.Op.String(), node.Token, env, targetObj)
}

func evalDup(node *ast.Operation, env *Environment) Object {
	top, ok := env.Stack.Peek()
	if !ok {
		return underflow(node, env, 1)
	}
	env.Stack.Push(top)
	return nil
}

func evalSwap(node *ast.Operation, env *Environment) Object {
	a, b, sig := pop2(node, env)
	if sig != nil {
		return sig
	}
	env.Stack.Push(a)
	env.Stack.Push(b)
	return nil
}

// evalOver copies the second-from-top to the top: [x, y] -> [x, y, x].
func evalOver(node *ast.Operation, env *Environment) Object {
	if env.Stack.Len() < 2 {
		return underflow(node, env, 2)
	}
	items := env.Stack.Items()
	env.Stack.Push(items[len(items)-2])
	return nil
}

// evalRot rotates the top three, bringing the third-from-top to the
// top: [45, 5, 12] -> [5, 12, 45].
func evalRot(node *ast.Operation, env *Environment) Object {
	if env.Stack.Len() < 3 {
		return underflow(node, env, 3)
	}
	a, _ := env.Stack.Pop()
	b, _ := env.Stack.Pop()
	c, _ := env.Stack.Pop()
	env.Stack.Push(b)
	env.Stack.Push(a)
	env.Stack.Push(c)
	return nil
}
