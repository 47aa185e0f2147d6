package ast

import (
	"fmt"
	"io"
)

// Fprint writes an indented outline of p's statements and function bodies
// to w, one node per line. Debug aid only; the output format is not stable.
func Fprint(w io.Writer, p *Program) {
	fmt.Fprintf(w, "program %s (%s) slots=%d\n", p.Name, p.Filename, p.NumSlots)
	printNodes(w, p.Top, 1)
	for _, def := range p.Funcs {
		gen := ""
		if def.IsGenerator {
			gen = " generator"
		}
		fmt.Fprintf(w, "func %s/%d slots=%d%s\n", def.Name, len(def.Params), def.NumSlots, gen)
		printNodes(w, def.Body, 1)
	}
}

func printNodes(w io.Writer, nodes []Node, depth int) {
	for i := range nodes {
		printNode(w, &nodes[i], depth)
	}
}

func printNode(w io.Writer, n *Node, depth int) {
	indent := fmt.Sprintf("%*s", depth*2, "")
	switch n.Kind {
	case NPass:
		fmt.Fprintf(w, "%spass\n", indent)
	case NExpr:
		fmt.Fprintf(w, "%sexpr %s\n", indent, exprLabel(n.Expr))
	case NReturn:
		fmt.Fprintf(w, "%sreturn %s\n", indent, exprLabel(n.Expr))
	case NReturnNone:
		fmt.Fprintf(w, "%sreturn None\n", indent)
	case NRaise:
		if n.Cause != nil {
			fmt.Fprintf(w, "%sraise %s from %s\n", indent, exprLabel(n.Expr), exprLabel(n.Cause))
		} else {
			fmt.Fprintf(w, "%sraise %s\n", indent, exprLabel(n.Expr))
		}
	case NAssign:
		fmt.Fprintf(w, "%sassign %s = %s\n", indent, targetLabel(n), exprLabel(n.Expr))
	case NOpAssign:
		fmt.Fprintf(w, "%sassign %s %s= %s\n", indent, targetLabel(n), n.Op, exprLabel(n.Expr))
	case NFor:
		fmt.Fprintf(w, "%sfor %s in %s\n", indent, n.Target.Name, exprLabel(n.Iter))
		printNodes(w, n.Body, depth+1)
		printElse(w, n.OrElse, depth)
	case NIf:
		fmt.Fprintf(w, "%sif %s\n", indent, exprLabel(n.Test))
		printNodes(w, n.Body, depth+1)
		printElse(w, n.OrElse, depth)
	case NWhile:
		fmt.Fprintf(w, "%swhile %s\n", indent, exprLabel(n.Test))
		printNodes(w, n.Body, depth+1)
		printElse(w, n.OrElse, depth)
	case NTry:
		fmt.Fprintf(w, "%stry\n", indent)
		printNodes(w, n.Body, depth+1)
		for _, h := range n.Handlers {
			as := ""
			if h.Name != nil {
				as = " as " + h.Name.Name
			}
			fmt.Fprintf(w, "%sexcept %v%s\n", indent, h.ExcTypes, as)
			printNodes(w, h.Body, depth+1)
		}
		if len(n.Finally) > 0 {
			fmt.Fprintf(w, "%sfinally\n", indent)
			printNodes(w, n.Finally, depth+1)
		}
	case NYield:
		fmt.Fprintf(w, "%syield %s\n", indent, exprLabel(n.Expr))
	case NDelete:
		fmt.Fprintf(w, "%sdel %s[%s]\n", indent, exprLabel(n.DelObject), exprLabel(n.DelKey))
	default:
		fmt.Fprintf(w, "%snode(%d)\n", indent, n.Kind)
	}
}

func printElse(w io.Writer, orElse []Node, depth int) {
	if len(orElse) == 0 {
		return
	}
	fmt.Fprintf(w, "%*selse\n", depth*2, "")
	printNodes(w, orElse, depth+1)
}

func targetLabel(n *Node) string {
	if n.Target != nil {
		return n.Target.Name
	}
	if n.TargetKey != nil {
		return fmt.Sprintf("%s[%s]", exprLabel(n.TargetObject), exprLabel(n.TargetKey))
	}
	return fmt.Sprintf("%s.%s", exprLabel(n.TargetObject), n.TargetAttr)
}

func exprLabel(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case EConst:
		return "const"
	case EIdent:
		return e.Ident.Name
	case EBinOp, ECompare:
		return fmt.Sprintf("(%s %s %s)", exprLabel(e.Left), e.Op, exprLabel(e.Right))
	case EUnaryNeg:
		return fmt.Sprintf("(-%s)", exprLabel(e.Operand))
	case ENot:
		return fmt.Sprintf("(not %s)", exprLabel(e.Operand))
	case EBoolOp:
		op := "and"
		if e.BoolOp == BoolOr {
			op = "or"
		}
		return fmt.Sprintf("(%s chain, %d operands)", op, len(e.Operands))
	case ECall:
		return fmt.Sprintf("%s(%d args)", e.CallName, len(e.Args)+len(e.Kwargs))
	case EIndex:
		return fmt.Sprintf("%s[%s]", exprLabel(e.Object), exprLabel(e.Key))
	case EAttr:
		return fmt.Sprintf("%s.%s", exprLabel(e.Object), e.Attr)
	case EList:
		return fmt.Sprintf("list(%d)", len(e.Elems))
	case ETuple:
		return fmt.Sprintf("tuple(%d)", len(e.Elems))
	case EDict:
		return fmt.Sprintf("dict(%d)", len(e.Keys))
	}
	return "expr"
}
