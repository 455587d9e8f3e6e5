package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/values"
	"github.com/goliatone/go-jsonform/pkg/visibility"
)

// Evaluator evaluates layout conditions.
//
// Supported syntax:
// - truthiness: `enabled`, `model.enabled`
// - comparisons: `kind == "pro"`, `count >= 3`, `a != b`, `x === null`
// - composition: `a && !b`, `a or (b and not c)`
//
// Identifiers are dotted paths (`address.city`, `friends[].name`) or JSON
// pointers (`/address/city`) into visibility.Context.Data. A leading
// `model.` is ignored. `[]` segments take the node's array indices in
// order. The `extras.` prefix reads visibility.Context.Extras.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Eval parses and evaluates condition. An empty condition holds.
func (e *Evaluator) Eval(nodePath, condition string, ctx visibility.Context) (bool, error) {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return false, fmt.Errorf("%w (node %s)", err, nodePath)
	}
	if len(tokens) == 0 {
		return true, nil
	}
	node, err := parseExpression(tokens)
	if err != nil {
		return false, fmt.Errorf("%w (node %s)", err, nodePath)
	}
	return node.eval(ctx)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

var operatorText = map[tokenKind]string{
	tokenEq: "==", tokenNeq: "!=", tokenLt: "<", tokenLte: "<=", tokenGt: ">", tokenGte: ">=",
}

type token struct {
	kind tokenKind
	raw  string
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>':
		return true
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	peek := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}
	emit := func(kind tokenKind, raw string, width int) {
		tokens = append(tokens, token{kind: kind, raw: raw})
		i += width
	}

	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			emit(tokenLParen, "(", 1)
		case ch == ')':
			emit(tokenRParen, ")", 1)
		case ch == '!' && peek(1) == '=' && peek(2) == '=':
			emit(tokenNeq, "!==", 3)
		case ch == '!' && peek(1) == '=':
			emit(tokenNeq, "!=", 2)
		case ch == '!':
			emit(tokenNot, "!", 1)
		case ch == '=' && peek(1) == '=' && peek(2) == '=':
			emit(tokenEq, "===", 3)
		case ch == '=' && peek(1) == '=':
			emit(tokenEq, "==", 2)
		case ch == '=':
			return nil, errors.New("visibility/expr: unexpected '='; use '=='")
		case ch == '<' && peek(1) == '=':
			emit(tokenLte, "<=", 2)
		case ch == '<':
			emit(tokenLt, "<", 1)
		case ch == '>' && peek(1) == '=':
			emit(tokenGte, ">=", 2)
		case ch == '>':
			emit(tokenGt, ">", 1)
		case ch == '&' && peek(1) == '&':
			emit(tokenAnd, "&&", 2)
		case ch == '&':
			return nil, errors.New("visibility/expr: unexpected '&'; use '&&'")
		case ch == '|' && peek(1) == '|':
			emit(tokenOr, "||", 2)
		case ch == '|':
			return nil, errors.New("visibility/expr: unexpected '|'; use '||'")
		case ch == '"' || ch == '\'':
			value, width, err := readString(input[i:])
			if err != nil {
				return nil, err
			}
			emit(tokenString, value, width)
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil", "undefined":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			case "and":
				tokens = append(tokens, token{kind: tokenAnd, raw: raw})
			case "or":
				tokens = append(tokens, token{kind: tokenOr, raw: raw})
			case "not":
				tokens = append(tokens, token{kind: tokenNot, raw: raw})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}
	return tokens, nil
}

// readString reads a quoted literal at the start of s and returns its value
// and the number of bytes consumed.
func readString(s string) (string, int, error) {
	quote := s[0]
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := s[1:i]
		if quote == '\'' {
			body = strings.ReplaceAll(strings.ReplaceAll(body, `\'`, `'`), `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	if ch := raw[0]; (ch < '0' || ch > '9') && ch != '-' && ch != '+' && ch != '.' {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type exprNode interface {
	eval(ctx visibility.Context) (bool, error)
}

type exprOr struct{ left, right exprNode }

func (n exprOr) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type exprAnd struct{ left, right exprNode }

func (n exprAnd) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type exprNot struct{ inner exprNode }

func (n exprNot) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// operand is an identifier or a literal.
type operand struct {
	identifier string
	literal    any
	isLiteral  bool
}

func (o operand) value(ctx visibility.Context) any {
	if o.isLiteral {
		return o.literal
	}
	v, _ := lookup(ctx, o.identifier)
	return v
}

type exprCompare struct {
	left, right operand
	op          tokenKind
}

func (n exprCompare) eval(ctx visibility.Context) (bool, error) {
	a, b := n.left.value(ctx), n.right.value(ctx)
	switch n.op {
	case tokenEq:
		return equal(a, b), nil
	case tokenNeq:
		return !equal(a, b), nil
	}
	cmp, ok := order(a, b)
	if !ok {
		return false, nil
	}
	switch n.op {
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	case tokenGte:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("visibility/expr: unsupported operator %q", operatorText[n.op])
}

type exprTruthy struct{ operand operand }

func (n exprTruthy) eval(ctx visibility.Context) (bool, error) {
	return truthy(n.operand.value(ctx)), nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}
	left, err := stream.operand()
	if err != nil {
		return nil, err
	}
	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLte, tokenLt, tokenGte, tokenGt} {
		if stream.match(op) {
			right, err := stream.operand()
			if err != nil {
				return nil, err
			}
			return exprCompare{left: left, right: right, op: op}, nil
		}
	}
	return exprTruthy{operand: left}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) operand() (operand, error) {
	if s.pos >= len(s.tokens) {
		return operand{}, errors.New("visibility/expr: unexpected end of expression")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenIdentifier:
		return operand{identifier: tok.raw}, nil
	case tokenString:
		return operand{literal: tok.raw, isLiteral: true}, nil
	case tokenNumber:
		f, _ := strconv.ParseFloat(tok.raw, 64)
		return operand{literal: f, isLiteral: true}, nil
	case tokenBool:
		return operand{literal: tok.raw == "true", isLiteral: true}, nil
	case tokenNull:
		return operand{literal: nil, isLiteral: true}, nil
	default:
		return operand{}, fmt.Errorf("visibility/expr: expected value, got %q", tok.raw)
	}
}

// lookup resolves an identifier against the context.
func lookup(ctx visibility.Context, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "extras.") {
		return lookupMap(ctx.Extras, key[len("extras."):])
	}
	switch {
	case lower == "model":
		return ctx.Data, ctx.Data != nil
	case strings.HasPrefix(lower, "model."):
		key = key[len("model."):]
	}
	p, err := pointer.ParseObjectPath(key)
	if err != nil {
		return nil, false
	}
	next := 0
	for i, seg := range p {
		if !seg.IsWildcard() {
			continue
		}
		if next >= len(ctx.Indices) {
			return nil, false
		}
		p[i] = pointer.Index(ctx.Indices[next])
		next++
	}
	return pointer.Get(ctx.Data, p)
}

// lookupMap reads a dotted path, preferring an exact key match.
func lookupMap(m map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(m) == 0 || path == "" {
		return nil, false
	}
	if v, ok := m[path]; ok {
		return v, true
	}
	var current any = m
	for _, part := range strings.Split(path, ".") {
		typed, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = typed[strings.TrimSpace(part)]; !ok {
			return nil, false
		}
	}
	return current, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case nil:
		return false
	}
	if f, ok := values.ToFloat(value); ok && values.IsNumber(value, true) {
		return f != 0
	}
	return !values.IsEmpty(value)
}

// equal compares loosely: booleans by truthiness of the other side, numbers
// numerically, everything else by value or by string form.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if bb, ok := b.(bool); ok {
		return coerceBool(a) == bb
	}
	if ab, ok := a.(bool); ok {
		return coerceBool(b) == ab
	}
	if values.Equal(a, b) {
		return true
	}
	if fa, ok := values.ToFloat(a); ok {
		if fb, ok := values.ToFloat(b); ok {
			return fa == fb
		}
	}
	if values.IsPrimitive(a) && values.IsPrimitive(b) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return false
}

// order compares numbers numerically and strings lexically.
func order(a, b any) (int, bool) {
	if fa, ok := values.ToFloat(a); ok {
		if fb, ok := values.ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func coerceBool(value any) bool {
	if s, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return truthy(value)
}
