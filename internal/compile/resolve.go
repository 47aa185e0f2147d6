package compile

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/excno"
	"github.com/RayVR/monty/internal/intern"
)

// builtinNames are resolved directly by internal/eval, never through a
// user/external lookup.
var builtinNames = map[string]bool{
	"len": true, "print": true, "iter": true, "range": true,
	"int": true, "float": true, "bool": true, "str": true,
	"list": true, "tuple": true, "dict": true,
}

// scope assigns dense, incrementing namespace slots to identifiers the
// first time they're seen (whether read or written) within one frame
// (module or function); functions never see the module's namespace or
// each other's locals, matching the reference frame's single flat
// `namespace: Vec<Object>` with no closures.
type scope struct {
	slots map[string]int
	next  int
}

func newScope() *scope { return &scope{slots: map[string]int{}} }

func (s *scope) slotFor(name string) int {
	if id, ok := s.slots[name]; ok {
		return id
	}
	id := s.next
	s.slots[name] = id
	s.next++
	return id
}

// Resolve assigns namespace slots to every identifier in prog, interns
// every attribute name into prog.Interns, and classifies every call site's
// CallTarget, given the host's external function names.
func Resolve(prog *ast.Program, externalNames []string) error {
	external := map[string]bool{}
	for _, n := range externalNames {
		external[n] = true
	}
	funcNames := map[string]bool{}
	for _, fn := range prog.Funcs {
		funcNames[fn.Name] = true
	}

	in := intern.NewTable()
	prog.Interns = in

	topScope := newScope()
	if err := resolveBlock(prog.Top, topScope, funcNames, external, in); err != nil {
		return err
	}
	prog.NumSlots = topScope.next

	for _, fn := range prog.Funcs {
		sc := newScope()
		for i := range fn.Params {
			fn.Params[i].Slot = sc.slotFor(fn.Params[i].Name)
		}
		for i := range fn.Defaults {
			if fn.Defaults[i] != nil {
				if err := resolveExpr(fn.Defaults[i], sc, funcNames, external, in); err != nil {
					return err
				}
			}
		}
		if err := resolveBlock(fn.Body, sc, funcNames, external, in); err != nil {
			return err
		}
		fn.NumSlots = sc.next
	}
	return nil
}

func resolveBlock(nodes []ast.Node, sc *scope, funcNames, external map[string]bool, in *intern.Table) error {
	for i := range nodes {
		if err := resolveNode(&nodes[i], sc, funcNames, external, in); err != nil {
			return err
		}
	}
	return nil
}

func resolveNode(n *ast.Node, sc *scope, funcNames, external map[string]bool, in *intern.Table) error {
	switch n.Kind {
	case ast.NPass, ast.NReturnNone:
		return nil
	case ast.NExpr, ast.NReturn, ast.NYield:
		return resolveExpr(n.Expr, sc, funcNames, external, in)
	case ast.NRaise:
		if err := resolveExpr(n.Expr, sc, funcNames, external, in); err != nil {
			return err
		}
		if n.Cause != nil {
			return resolveExpr(n.Cause, sc, funcNames, external, in)
		}
		return nil
	case ast.NAssign, ast.NOpAssign:
		if n.Target != nil {
			n.Target.Slot = sc.slotFor(n.Target.Name)
		} else {
			if err := resolveExpr(n.TargetObject, sc, funcNames, external, in); err != nil {
				return err
			}
			if n.TargetKey != nil {
				if err := resolveExpr(n.TargetKey, sc, funcNames, external, in); err != nil {
					return err
				}
			}
			if n.TargetAttr != "" {
				n.TargetAttrID = in.Intern(n.TargetAttr)
			}
		}
		return resolveExpr(n.Expr, sc, funcNames, external, in)
	case ast.NFor:
		n.Target.Slot = sc.slotFor(n.Target.Name)
		if err := resolveExpr(n.Iter, sc, funcNames, external, in); err != nil {
			return err
		}
		if err := resolveBlock(n.Body, sc, funcNames, external, in); err != nil {
			return err
		}
		return resolveBlock(n.OrElse, sc, funcNames, external, in)
	case ast.NIf, ast.NWhile:
		if err := resolveExpr(n.Test, sc, funcNames, external, in); err != nil {
			return err
		}
		if err := resolveBlock(n.Body, sc, funcNames, external, in); err != nil {
			return err
		}
		return resolveBlock(n.OrElse, sc, funcNames, external, in)
	case ast.NTry:
		if err := resolveBlock(n.Body, sc, funcNames, external, in); err != nil {
			return err
		}
		for i := range n.Handlers {
			h := &n.Handlers[i]
			if h.Name != nil {
				h.Name.Slot = sc.slotFor(h.Name.Name)
			}
			if err := resolveBlock(h.Body, sc, funcNames, external, in); err != nil {
				return err
			}
		}
		return resolveBlock(n.Finally, sc, funcNames, external, in)
	case ast.NDelete:
		if err := resolveExpr(n.DelObject, sc, funcNames, external, in); err != nil {
			return err
		}
		if n.DelKey != nil {
			return resolveExpr(n.DelKey, sc, funcNames, external, in)
		}
		return nil
	}
	return nil
}

func resolveExpr(e *ast.Expr, sc *scope, funcNames, external map[string]bool, in *intern.Table) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ast.EConst:
		return nil
	case ast.EIdent:
		e.Ident.Slot = sc.slotFor(e.Ident.Name)
		return nil
	case ast.EBinOp, ast.ECompare:
		if err := resolveExpr(e.Left, sc, funcNames, external, in); err != nil {
			return err
		}
		return resolveExpr(e.Right, sc, funcNames, external, in)
	case ast.EUnaryNeg, ast.ENot:
		return resolveExpr(e.Operand, sc, funcNames, external, in)
	case ast.EBoolOp:
		for _, op := range e.Operands {
			if err := resolveExpr(op, sc, funcNames, external, in); err != nil {
				return err
			}
		}
		return nil
	case ast.ECall:
		if err := resolveCallTarget(e, sc, funcNames, external, in); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := resolveExpr(a, sc, funcNames, external, in); err != nil {
				return err
			}
		}
		for _, kw := range e.Kwargs {
			if err := resolveExpr(kw.Value, sc, funcNames, external, in); err != nil {
				return err
			}
		}
		return nil
	case ast.EIndex:
		if err := resolveExpr(e.Object, sc, funcNames, external, in); err != nil {
			return err
		}
		return resolveExpr(e.Key, sc, funcNames, external, in)
	case ast.EAttr:
		e.AttrID = in.Intern(e.Attr)
		return resolveExpr(e.Object, sc, funcNames, external, in)
	case ast.EList, ast.ETuple:
		for _, el := range e.Elems {
			if err := resolveExpr(el, sc, funcNames, external, in); err != nil {
				return err
			}
		}
		return nil
	case ast.EDict:
		for i := range e.Keys {
			if err := resolveExpr(e.Keys[i], sc, funcNames, external, in); err != nil {
				return err
			}
			if err := resolveExpr(e.Vals[i], sc, funcNames, external, in); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// resolveCallTarget classifies e (an ECall). A bare-name callee never
// consumes a namespace slot; names in call position refer to functions,
// not frame-local variables, since this language subset has no first-class
// function values passed through assignment. An attribute callee (obj.m(...))
// does resolve its receiver expression normally, since that is a real value
// the evaluator must compute, and interns the method name the same way a
// plain EAttr node would.
func resolveCallTarget(e *ast.Expr, sc *scope, funcNames, external map[string]bool, in *intern.Table) error {
	switch e.Callee.Kind {
	case ast.EIdent:
		name := e.Callee.Ident.Name
		e.CallName = name
		switch {
		case name == "os":
			return errAt(e.Range.Line, e.Range.Col, "`os` is a namespace, not callable")
		case builtinNames[name], excno.IsExceptionName(name):
			e.CallTarget = ast.CallBuiltin
		case funcNames[name]:
			e.CallTarget = ast.CallUser
		case external[name]:
			e.CallTarget = ast.CallExternal
		default:
			return errAt(e.Range.Line, e.Range.Col, "call to undefined function '%s'", name)
		}
		return nil
	case ast.EAttr:
		e.Callee.AttrID = in.Intern(e.Callee.Attr)
		if e.Callee.Object.Kind == ast.EIdent && e.Callee.Object.Ident.Name == "os" {
			e.CallTarget = ast.CallOS
			e.CallName = e.Callee.Attr
			return nil
		}
		return resolveExpr(e.Callee.Object, sc, funcNames, external, in)
	default:
		return errAt(e.Range.Line, e.Range.Col, "unsupported call expression")
	}
}
