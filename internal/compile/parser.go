package compile

import (
	"github.com/RayVR/monty/internal/ast"
	"github.com/RayVR/monty/internal/value"
)

// Parser consumes a token stream and builds an unresolved ast.Program (name
// identifiers carry Slot == -1 until the resolve pass assigns them).
type Parser struct {
	toks []Token
	pos  int
	funcs []*ast.FuncDef
}

// NewParser builds a Parser over toks.
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) is(kind TokKind, text string) bool {
	t := p.cur()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *Parser) isOp(text string) bool      { return p.is(TokOp, text) }
func (p *Parser) isKeyword(text string) bool { return p.is(TokKeyword, text) }

func (p *Parser) expectOp(text string) (Token, error) {
	if !p.isOp(text) {
		return Token{}, errAt(p.cur().Line, p.cur().Col, "expected %q, got %q", text, p.cur().Text)
	}
	return p.next(), nil
}

func (p *Parser) expectKeyword(text string) (Token, error) {
	if !p.isKeyword(text) {
		return Token{}, errAt(p.cur().Line, p.cur().Col, "expected keyword %q, got %q", text, p.cur().Text)
	}
	return p.next(), nil
}

func (p *Parser) expectName() (Token, error) {
	if p.cur().Kind != TokName {
		return Token{}, errAt(p.cur().Line, p.cur().Col, "expected identifier, got %q", p.cur().Text)
	}
	return p.next(), nil
}

func rangeAt(t Token) ast.CodeRange {
	return ast.CodeRange{Line: t.Line, Col: t.Col, EndLine: t.Line, EndCol: t.Col}
}

func ident(t Token) *ast.Identifier {
	return &ast.Identifier{Name: t.Text, Slot: -1, Range: rangeAt(t)}
}

// ParseProgram parses a full module: top-level `def`s are hoisted into
// Program.Funcs, every other statement stays in Program.Top, in source
// order (the <module> frame executes top-level statements directly, with
// function bodies compiled separately). externalNames lists the
// host-supplied external function
// names (monty.New's externalNames), used by the resolve pass to
// classify each call site as user/builtin/external/OS.
func ParseProgram(src, filename string, externalNames []string) (*ast.Program, error) {
	lex := NewLexer(src)
	toks, err := lex.Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	var top []ast.Node
	for !p.is(TokEOF, "") {
		if p.is(TokNewline, "") {
			p.next()
			continue
		}
		if p.isKeyword("def") {
			fn, err := p.parseFuncDef()
			if err != nil {
				return nil, err
			}
			p.funcs = append(p.funcs, fn)
			continue
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		top = append(top, stmt...)
	}
	implicitReturn(top)
	prog := &ast.Program{Name: "<module>", Filename: filename, Top: top, Funcs: p.funcs}
	if err := Resolve(prog, externalNames); err != nil {
		return nil, err
	}
	return prog, nil
}

// implicitReturn rewrites a module's trailing bare expression statement into
// a return, in place: `1 + 2` as the last line of a script is that
// script's result. It recurses into
// whichever branch actually runs last: both arms of a trailing `if`, every
// `except` body and the `try` body of a trailing `try` (superseded by
// `finally` when present, since that always runs last), but never a loop
// body, whose last iteration isn't known until runtime.
func implicitReturn(top []ast.Node) {
	markTailBlock(top)
}

func markTailBlock(block []ast.Node) {
	if len(block) == 0 {
		return
	}
	markTailNode(&block[len(block)-1])
}

func markTailNode(n *ast.Node) {
	switch n.Kind {
	case ast.NExpr:
		n.Kind = ast.NReturn
	case ast.NIf:
		markTailBlock(n.Body)
		markTailBlock(n.OrElse)
	case ast.NTry:
		if len(n.Finally) > 0 {
			markTailBlock(n.Finally)
			return
		}
		markTailBlock(n.Body)
		for i := range n.Handlers {
			markTailBlock(n.Handlers[i].Body)
		}
	}
}

func (p *Parser) parseFuncDef() (*ast.FuncDef, error) {
	if _, err := p.expectKeyword("def"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp("("); err != nil {
		return nil, err
	}
	var params []ast.Identifier
	var defaults []*ast.Expr
	for !p.isOp(")") {
		pt, err := p.expectName()
		if err != nil {
			return nil, err
		}
		params = append(params, *ident(pt))
		if p.isOp("=") {
			p.next()
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			defaults = append(defaults, def)
		} else if len(defaults) > 0 {
			return nil, errAt(pt.Line, pt.Col, "non-default argument follows default argument")
		}
		if p.isOp(",") {
			p.next()
		}
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, isGen, err := p.parseBlockDetectYield()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: nameTok.Text, Params: params, Defaults: defaults, Body: body, IsGenerator: isGen}, nil
}

func (p *Parser) parseBlockDetectYield() ([]ast.Node, bool, error) {
	body, err := p.parseBlock()
	if err != nil {
		return nil, false, err
	}
	return body, containsYield(body), nil
}

func containsYield(body []ast.Node) bool {
	for _, n := range body {
		if n.Kind == ast.NYield {
			return true
		}
		if containsYield(n.Body) || containsYield(n.OrElse) || containsYield(n.Finally) {
			return true
		}
		for _, h := range n.Handlers {
			if containsYield(h.Body) {
				return true
			}
		}
	}
	return false
}

// parseBlock parses `NEWLINE INDENT stmt+ DEDENT`, or a simple-statement
// line written on the same line as the colon.
func (p *Parser) parseBlock() ([]ast.Node, error) {
	if !p.is(TokNewline, "") && !p.is(TokIndent, "") {
		return p.parseSimpleStmtLine()
	}
	if p.is(TokNewline, "") {
		p.next()
	}
	if _, err := p.expect(TokIndent); err != nil {
		return nil, err
	}
	var body []ast.Node
	for !p.is(TokDedent, "") && !p.is(TokEOF, "") {
		if p.is(TokNewline, "") {
			p.next()
			continue
		}
		stmts, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	if p.is(TokDedent, "") {
		p.next()
	}
	return body, nil
}

func (p *Parser) expect(kind TokKind) (Token, error) {
	if p.cur().Kind != kind {
		return Token{}, errAt(p.cur().Line, p.cur().Col, "unexpected token %q", p.cur().Text)
	}
	return p.next(), nil
}

// parseStmt parses one logical statement, which may desugar into multiple
// ast.Nodes only in the simple-statement ';'-chained case.
func (p *Parser) parseStmt() ([]ast.Node, error) {
	switch {
	case p.isKeyword("if"):
		n, err := p.parseIf()
		return []ast.Node{n}, err
	case p.isKeyword("for"):
		n, err := p.parseFor()
		return []ast.Node{n}, err
	case p.isKeyword("while"):
		n, err := p.parseWhile()
		return []ast.Node{n}, err
	case p.isKeyword("try"):
		n, err := p.parseTry()
		return []ast.Node{n}, err
	default:
		return p.parseSimpleStmtLine()
	}
}

func (p *Parser) parseSimpleStmtLine() ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		n, err := p.parseSmallStmt()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if p.isOp(";") {
			p.next()
			continue
		}
		break
	}
	if p.is(TokNewline, "") {
		p.next()
	}
	return nodes, nil
}

func (p *Parser) parseSmallStmt() (ast.Node, error) {
	tok := p.cur()
	switch {
	case p.isKeyword("pass"):
		p.next()
		return ast.Node{Kind: ast.NPass, Range: rangeAt(tok)}, nil
	case p.isKeyword("return"):
		p.next()
		if p.is(TokNewline, "") || p.isOp(";") {
			return ast.Node{Kind: ast.NReturnNone, Range: rangeAt(tok)}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.Node{Kind: ast.NReturn, Expr: e, Range: rangeAt(tok)}, nil
	case p.isKeyword("yield"):
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.Node{Kind: ast.NYield, Expr: e, Range: rangeAt(tok)}, nil
	case p.isKeyword("raise"):
		p.next()
		if p.is(TokNewline, "") || p.isOp(";") {
			return ast.Node{}, errAt(tok.Line, tok.Col, "bare `raise` is not supported")
		}
		e, err := p.parseExpr()
		if err != nil {
			return ast.Node{}, err
		}
		var cause *ast.Expr
		if p.isKeyword("from") {
			p.next()
			cause, err = p.parseExpr()
			if err != nil {
				return ast.Node{}, err
			}
		}
		return ast.Node{Kind: ast.NRaise, Expr: e, Cause: cause, Range: rangeAt(tok)}, nil
	case p.isKeyword("del"):
		p.next()
		target, err := p.parsePostfix()
		if err != nil {
			return ast.Node{}, err
		}
		if target.Kind != ast.EIndex && target.Kind != ast.EAttr {
			return ast.Node{}, errAt(tok.Line, tok.Col, "`del` target must be an item or attribute")
		}
		n := ast.Node{Kind: ast.NDelete, DelObject: target.Object, Range: rangeAt(tok)}
		if target.Kind == ast.EIndex {
			n.DelKey = target.Key
		}
		return n, nil
	default:
		return p.parseExprOrAssignStmt()
	}
}

// parseExprOrAssignStmt handles `expr`, `target = expr`, and
// `target OP= expr`, where target is a name, subscript, or attribute.
func (p *Parser) parseExprOrAssignStmt() (ast.Node, error) {
	start := p.pos
	lhs, err := p.parseExpr()
	if err != nil {
		return ast.Node{}, err
	}
	if p.isOp("=") {
		p.next()
		rhs, err := p.parseExpr()
		if err != nil {
			return ast.Node{}, err
		}
		return buildAssign(lhs, rhs)
	}
	if op, ok := augAssignOp(p.cur()); ok {
		tok := p.cur()
		p.next()
		if op == ast.OpMatMul {
			return ast.Node{}, errAt(tok.Line, tok.Col, "`@=` (in-place matrix multiply) is not supported")
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return ast.Node{}, err
		}
		return buildOpAssign(lhs, op, rhs)
	}
	_ = start
	return ast.Node{Kind: ast.NExpr, Expr: lhs, Range: lhs.Range}, nil
}

func augAssignOp(t Token) (ast.Operator, bool) {
	if t.Kind != TokOp {
		return 0, false
	}
	switch t.Text {
	case "+=":
		return ast.OpAdd, true
	case "-=":
		return ast.OpSub, true
	case "*=":
		return ast.OpMul, true
	case "/=":
		return ast.OpDiv, true
	case "//=":
		return ast.OpFloorDiv, true
	case "%=":
		return ast.OpMod, true
	case "**=":
		return ast.OpPow, true
	case "@=":
		return ast.OpMatMul, true
	}
	return 0, false
}

func buildAssign(lhs, rhs *ast.Expr) (ast.Node, error) {
	switch lhs.Kind {
	case ast.EIdent:
		return ast.Node{Kind: ast.NAssign, Target: lhs.Ident, Expr: rhs, Range: lhs.Range}, nil
	case ast.EIndex:
		return ast.Node{Kind: ast.NAssign, TargetObject: lhs.Object, TargetKey: lhs.Key, Expr: rhs, Range: lhs.Range}, nil
	case ast.EAttr:
		return ast.Node{Kind: ast.NAssign, TargetObject: lhs.Object, TargetAttr: lhs.Attr, Expr: rhs, Range: lhs.Range}, nil
	default:
		return ast.Node{}, errAt(lhs.Range.Line, lhs.Range.Col, "invalid assignment target")
	}
}

func buildOpAssign(lhs *ast.Expr, op ast.Operator, rhs *ast.Expr) (ast.Node, error) {
	switch lhs.Kind {
	case ast.EIdent:
		return ast.Node{Kind: ast.NOpAssign, Target: lhs.Ident, Op: op, Expr: rhs, Range: lhs.Range}, nil
	case ast.EIndex:
		return ast.Node{Kind: ast.NOpAssign, TargetObject: lhs.Object, TargetKey: lhs.Key, Op: op, Expr: rhs, Range: lhs.Range}, nil
	case ast.EAttr:
		return ast.Node{Kind: ast.NOpAssign, TargetObject: lhs.Object, TargetAttr: lhs.Attr, Op: op, Expr: rhs, Range: lhs.Range}, nil
	default:
		return ast.Node{}, errAt(lhs.Range.Line, lhs.Range.Col, "invalid assignment target")
	}
}

func (p *Parser) parseIf() (ast.Node, error) {
	tok, _ := p.expectKeyword("if")
	test, err := p.parseExpr()
	if err != nil {
		return ast.Node{}, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return ast.Node{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Node{}, err
	}
	var orElse []ast.Node
	if p.isKeyword("elif") {
		elifNode, err := p.parseIf2AsElif()
		if err != nil {
			return ast.Node{}, err
		}
		orElse = []ast.Node{elifNode}
	} else if p.isKeyword("else") {
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		orElse, err = p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
	}
	return ast.Node{Kind: ast.NIf, Test: test, Body: body, OrElse: orElse, Range: rangeAt(tok)}, nil
}

// parseIf2AsElif treats `elif` as `else: if ...` by rewriting the keyword.
func (p *Parser) parseIf2AsElif() (ast.Node, error) {
	tok := p.next() // consume `elif`
	test, err := p.parseExpr()
	if err != nil {
		return ast.Node{}, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return ast.Node{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Node{}, err
	}
	var orElse []ast.Node
	if p.isKeyword("elif") {
		n, err := p.parseIf2AsElif()
		if err != nil {
			return ast.Node{}, err
		}
		orElse = []ast.Node{n}
	} else if p.isKeyword("else") {
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		orElse, err = p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
	}
	return ast.Node{Kind: ast.NIf, Test: test, Body: body, OrElse: orElse, Range: rangeAt(tok)}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	tok, _ := p.expectKeyword("for")
	nameTok, err := p.expectName()
	if err != nil {
		return ast.Node{}, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return ast.Node{}, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return ast.Node{}, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return ast.Node{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Node{}, err
	}
	var orElse []ast.Node
	if p.isKeyword("else") {
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		orElse, err = p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
	}
	return ast.Node{Kind: ast.NFor, Target: ident(nameTok), Iter: iter, Body: body, OrElse: orElse, Range: rangeAt(tok)}, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	tok, _ := p.expectKeyword("while")
	test, err := p.parseExpr()
	if err != nil {
		return ast.Node{}, err
	}
	if _, err := p.expectOp(":"); err != nil {
		return ast.Node{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Node{}, err
	}
	var orElse []ast.Node
	if p.isKeyword("else") {
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		orElse, err = p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
	}
	return ast.Node{Kind: ast.NWhile, Test: test, Body: body, OrElse: orElse, Range: rangeAt(tok)}, nil
}

func (p *Parser) parseTry() (ast.Node, error) {
	tok, _ := p.expectKeyword("try")
	if _, err := p.expectOp(":"); err != nil {
		return ast.Node{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Node{}, err
	}
	var handlers []ast.ExceptHandler
	for p.isKeyword("except") {
		p.next()
		var excTypes []string
		var name *ast.Identifier
		if !p.isOp(":") {
			nameTok, err := p.expectName()
			if err != nil {
				return ast.Node{}, err
			}
			excTypes = append(excTypes, nameTok.Text)
			for p.isOp(",") {
				p.next()
				nt, err := p.expectName()
				if err != nil {
					return ast.Node{}, err
				}
				excTypes = append(excTypes, nt.Text)
			}
			if p.isKeyword("as") || p.is(TokName, "as") {
				p.next()
				nt, err := p.expectName()
				if err != nil {
					return ast.Node{}, err
				}
				name = ident(nt)
			}
		}
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		hbody, err := p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
		handlers = append(handlers, ast.ExceptHandler{ExcTypes: excTypes, Name: name, Body: hbody})
	}
	var finally []ast.Node
	if p.isKeyword("finally") {
		p.next()
		if _, err := p.expectOp(":"); err != nil {
			return ast.Node{}, err
		}
		finally, err = p.parseBlock()
		if err != nil {
			return ast.Node{}, err
		}
	}
	return ast.Node{Kind: ast.NTry, Body: body, Handlers: handlers, Finally: finally, Range: rangeAt(tok)}, nil
}

// --- expression grammar ---
//
// bool_or  := bool_and ('or' bool_and)*
// bool_and := bool_not ('and' bool_not)*
// bool_not := 'not' bool_not | compare
// compare  := additive (('=='|'!='|'<'|'<='|'>'|'>='|'in'|'not in') additive)*
// additive := term (('+'|'-') term)*
// term     := unary (('*'|'/'|'//'|'%'|'@') unary)*
// unary    := '-' unary | power
// power    := postfix ('**' unary)?
// postfix  := atom ('[' expr ']' | '.' NAME | '(' args ')')*
// atom     := NUMBER | STRING | NAME | 'True' | 'False' | 'None'
//           | '(' expr (',' expr)* ')' | '[' expr,* ']' | '{' (expr:expr,)* '}'

func (p *Parser) parseExpr() (*ast.Expr, error) { return p.parseBoolOr() }

func (p *Parser) parseBoolOr() (*ast.Expr, error) {
	left, err := p.parseBoolAnd()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("or") {
		return left, nil
	}
	operands := []*ast.Expr{left}
	for p.isKeyword("or") {
		p.next()
		next, err := p.parseBoolAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	return &ast.Expr{Kind: ast.EBoolOp, BoolOp: ast.BoolOr, Operands: operands, Range: left.Range}, nil
}

func (p *Parser) parseBoolAnd() (*ast.Expr, error) {
	left, err := p.parseBoolNot()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("and") {
		return left, nil
	}
	operands := []*ast.Expr{left}
	for p.isKeyword("and") {
		p.next()
		next, err := p.parseBoolNot()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	return &ast.Expr{Kind: ast.EBoolOp, BoolOp: ast.BoolAnd, Operands: operands, Range: left.Range}, nil
}

func (p *Parser) parseBoolNot() (*ast.Expr, error) {
	if p.isKeyword("not") {
		tok := p.next()
		operand, err := p.parseBoolNot()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ENot, Operand: operand, Range: rangeAt(tok)}, nil
	}
	return p.parseCompare()
}

func compareOp(t Token) (ast.Operator, bool) {
	if t.Kind != TokOp {
		return 0, false
	}
	switch t.Text {
	case "==":
		return ast.OpEq, true
	case "!=":
		return ast.OpNotEq, true
	case "<":
		return ast.OpLt, true
	case "<=":
		return ast.OpLte, true
	case ">":
		return ast.OpGt, true
	case ">=":
		return ast.OpGte, true
	}
	return 0, false
}

func (p *Parser) parseCompare() (*ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := compareOp(p.cur()); ok {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ECompare, Op: op, Left: left, Right: right, Range: left.Range}, nil
	}
	if p.isKeyword("in") {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ECompare, Op: ast.OpIn, Left: left, Right: right, Range: left.Range}, nil
	}
	if p.isKeyword("not") && p.peekAt(1).Kind == TokKeyword && p.peekAt(1).Text == "in" {
		p.next()
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ECompare, Op: ast.OpNotIn, Left: left, Right: right, Range: left.Range}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (*ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := ast.OpAdd
		if p.isOp("-") {
			op = ast.OpSub
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinOp, Op: op, Left: left, Right: right, Range: left.Range}
	}
	return left, nil
}

func (p *Parser) parseTerm() (*ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Operator
		switch {
		case p.isOp("*"):
			op = ast.OpMul
		case p.isOp("/"):
			op = ast.OpDiv
		case p.isOp("//"):
			op = ast.OpFloorDiv
		case p.isOp("%"):
			op = ast.OpMod
		case p.isOp("@"):
			op = ast.OpMatMul
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.EBinOp, Op: op, Left: left, Right: right, Range: left.Range}
	}
}

func (p *Parser) parseUnary() (*ast.Expr, error) {
	if p.isOp("-") {
		tok := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EUnaryNeg, Operand: operand, Range: rangeAt(tok)}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (*ast.Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EBinOp, Op: ast.OpPow, Left: left, Right: right, Range: left.Range}, nil
	}
	return left, nil
}

func (p *Parser) parsePostfix() (*ast.Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("["):
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}
			expr = &ast.Expr{Kind: ast.EIndex, Object: expr, Key: key, Range: expr.Range}
		case p.isOp("."):
			p.next()
			nameTok, err := p.expectName()
			if err != nil {
				return nil, err
			}
			expr = &ast.Expr{Kind: ast.EAttr, Object: expr, Attr: nameTok.Text, Range: expr.Range}
		case p.isOp("("):
			p.next()
			args, kwargs, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			name := ""
			if expr.Kind == ast.EIdent {
				name = expr.Ident.Name
			} else if expr.Kind == ast.EAttr {
				name = expr.Attr
			}
			expr = &ast.Expr{Kind: ast.ECall, Callee: expr, CallName: name, Args: args, Kwargs: kwargs, Range: expr.Range}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]*ast.Expr, []ast.KwArg, error) {
	var args []*ast.Expr
	var kwargs []ast.KwArg
	for !p.isOp(")") {
		if p.cur().Kind == TokName && p.peekAt(1).Kind == TokOp && p.peekAt(1).Text == "=" {
			nameTok := p.next()
			p.next() // '='
			val, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, ast.KwArg{Name: nameTok.Text, Value: val})
		} else {
			val, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, val)
		}
		if p.isOp(",") {
			p.next()
		}
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

func (p *Parser) parseAtom() (*ast.Expr, error) {
	tok := p.cur()
	switch {
	case tok.Kind == TokInt:
		p.next()
		n, err := ParseNumberInt(tok.Text)
		if err != nil {
			return nil, errAt(tok.Line, tok.Col, "invalid integer literal %q", tok.Text)
		}
		return &ast.Expr{Kind: ast.EConst, Const: value.NewInt(n), Range: rangeAt(tok)}, nil
	case tok.Kind == TokFloat:
		p.next()
		f, err := ParseNumberFloat(tok.Text)
		if err != nil {
			return nil, errAt(tok.Line, tok.Col, "invalid float literal %q", tok.Text)
		}
		return &ast.Expr{Kind: ast.EConst, Const: value.NewFloat(f), Range: rangeAt(tok)}, nil
	case tok.Kind == TokString:
		p.next()
		// Strings are heap values; EConst here carries the literal's text
		// in Attr, and internal/eval allocates a fresh Str from it each
		// time the expression is evaluated.
		return &ast.Expr{Kind: ast.EConst, Const: value.None, Attr: tok.Text, Range: rangeAt(tok)}, nil
	case tok.Kind == TokKeyword && tok.Text == "True":
		p.next()
		return &ast.Expr{Kind: ast.EConst, Const: value.NewBool(true), Range: rangeAt(tok)}, nil
	case tok.Kind == TokKeyword && tok.Text == "False":
		p.next()
		return &ast.Expr{Kind: ast.EConst, Const: value.NewBool(false), Range: rangeAt(tok)}, nil
	case tok.Kind == TokKeyword && tok.Text == "None":
		p.next()
		return &ast.Expr{Kind: ast.EConst, Const: value.None, Range: rangeAt(tok)}, nil
	case tok.Kind == TokName:
		p.next()
		return &ast.Expr{Kind: ast.EIdent, Ident: ident(tok), Range: rangeAt(tok)}, nil
	case p.isOp("("):
		p.next()
		if p.isOp(")") {
			p.next()
			return &ast.Expr{Kind: ast.ETuple, Range: rangeAt(tok)}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.isOp(",") {
			elems := []*ast.Expr{first}
			for p.isOp(",") {
				p.next()
				if p.isOp(")") {
					break
				}
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if _, err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ETuple, Elems: elems, Range: rangeAt(tok)}, nil
		}
		if _, err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return first, nil
	case p.isOp("["):
		p.next()
		var elems []*ast.Expr
		for !p.isOp("]") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.isOp(",") {
				p.next()
			}
		}
		if _, err := p.expectOp("]"); err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EList, Elems: elems, Range: rangeAt(tok)}, nil
	case p.isOp("{"):
		p.next()
		var keys, vals []*ast.Expr
		for !p.isOp("}") {
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp(":"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			vals = append(vals, v)
			if p.isOp(",") {
				p.next()
			}
		}
		if _, err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.EDict, Keys: keys, Vals: vals, Range: rangeAt(tok)}, nil
	default:
		return nil, errAt(tok.Line, tok.Col, "unexpected token %q", tok.Text)
	}
}
