//
// Copyright 2021 Johns Hopkins University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package sparql

import (
	"github.com/cockroachdb/errors"
	"github.com/knakk/rdf"
	"math"
	"regexp"
	"spahqler/model"
	"strings"
	"time"
	"unicode/utf8"
)

// errType is the SPARQL type error: unbound variables, ill-typed arguments and the like.  In a FILTER it simply
// makes the condition false.
var errType = errors.New("type error")

// fatalError aborts evaluation instead of being treated as a type error; it wraps store failures met while
// evaluating EXISTS and regular expressions that do not compile
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// Expr is a SPARQL expression, evaluated against a single solution
type Expr interface {
	Eval(ctx *evalContext, s Solution) (rdf.Term, error)
}

type varExpr struct {
	name string
}

type termExpr struct {
	term rdf.Term
}

type binaryExpr struct {
	op          string
	left, right Expr
}

type unaryExpr struct {
	op      string
	operand Expr
}

type inExpr struct {
	operand Expr
	list    []Expr
	negate  bool
}

type callExpr struct {
	// name is an upper-cased builtin name, or the IRI of a cast function
	name string
	args []Expr
}

type existsExpr struct {
	pattern Pattern
	negate  bool
}

func (e *varExpr) Eval(_ *evalContext, s Solution) (rdf.Term, error) {
	if t := s[e.name]; t != nil {
		return t, nil
	}
	return nil, errType
}

func (e *termExpr) Eval(*evalContext, Solution) (rdf.Term, error) {
	return e.term, nil
}

func (e *binaryExpr) Eval(ctx *evalContext, s Solution) (rdf.Term, error) {
	switch e.op {
	case "||":
		return e.or(ctx, s)
	case "&&":
		return e.and(ctx, s)
	}

	left, err := e.left.Eval(ctx, s)
	if err != nil {
		return nil, err
	}
	right, err := e.right.Eval(ctx, s)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case "=", "!=":
		eq, err := termsEqual(left, right)
		if err != nil {
			return nil, err
		}
		return newBoolean(eq == (e.op == "=")), nil
	case "<", ">", "<=", ">=":
		c, err := compareValues(left, right)
		if err != nil {
			return nil, err
		}
		switch e.op {
		case "<":
			return newBoolean(c < 0), nil
		case ">":
			return newBoolean(c > 0), nil
		case "<=":
			return newBoolean(c <= 0), nil
		default:
			return newBoolean(c >= 0), nil
		}
	default:
		return arithmetic(e.op, left, right)
	}
}

// a true operand wins over an error
func (e *binaryExpr) or(ctx *evalContext, s Solution) (rdf.Term, error) {
	left, leftErr := ebvOf(ctx, e.left, s)
	if leftErr == nil && left {
		return newBoolean(true), nil
	}
	if isFatal(leftErr) {
		return nil, leftErr
	}
	right, rightErr := ebvOf(ctx, e.right, s)
	if rightErr != nil {
		return nil, rightErr
	}
	if right {
		return newBoolean(true), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	return newBoolean(false), nil
}

// a false operand wins over an error
func (e *binaryExpr) and(ctx *evalContext, s Solution) (rdf.Term, error) {
	left, leftErr := ebvOf(ctx, e.left, s)
	if leftErr == nil && !left {
		return newBoolean(false), nil
	}
	if isFatal(leftErr) {
		return nil, leftErr
	}
	right, rightErr := ebvOf(ctx, e.right, s)
	if rightErr != nil {
		return nil, rightErr
	}
	if !right {
		return newBoolean(false), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	return newBoolean(true), nil
}

func (e *unaryExpr) Eval(ctx *evalContext, s Solution) (rdf.Term, error) {
	if e.op == "!" {
		b, err := ebvOf(ctx, e.operand, s)
		if err != nil {
			return nil, err
		}
		return newBoolean(!b), nil
	}
	v, err := e.operand.Eval(ctx, s)
	if err != nil {
		return nil, err
	}
	n, ok := numericValue(v)
	if !ok {
		return nil, errType
	}
	if e.op == "-" {
		n.i, n.f = -n.i, -n.f
	}
	return n.term(), nil
}

func (e *inExpr) Eval(ctx *evalContext, s Solution) (rdf.Term, error) {
	v, err := e.operand.Eval(ctx, s)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, candidate := range e.list {
		c, err := candidate.Eval(ctx, s)
		if err == nil {
			var eq bool
			if eq, err = termsEqual(v, c); err == nil && eq {
				return newBoolean(!e.negate), nil
			}
		}
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return newBoolean(e.negate), nil
}

func (e *existsExpr) Eval(ctx *evalContext, s Solution) (rdf.Term, error) {
	it := ctx.eval(e.pattern, s)
	found := it.Next()
	if err := it.Err(); err != nil {
		return nil, &fatalError{err: err}
	}
	return newBoolean(found != e.negate), nil
}

func isFatal(err error) bool {
	var fatal *fatalError
	return err != nil && errors.As(err, &fatal)
}

func ebvOf(ctx *evalContext, e Expr, s Solution) (bool, error) {
	v, err := e.Eval(ctx, s)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(v)
}

// Answers the effective boolean value of a term, as used by FILTER, IF, && and ||
func effectiveBooleanValue(t rdf.Term) (bool, error) {
	if l, ok := t.(rdf.Literal); ok && l.DataType.String() == model.XsdBoolean.String() {
		b, valid := booleanValue(t)
		return b && valid, nil
	}
	if n, ok := numericValue(t); ok {
		f := n.float()
		return f != 0 && !math.IsNaN(f), nil
	}
	if lexical, lang, ok := stringValue(t); ok && lang == "" {
		return lexical != "", nil
	}
	return false, errType
}

// Answers whether two terms are equal, comparing literals by value where their datatypes are understood
func termsEqual(a, b rdf.Term) (bool, error) {
	if model.Equal(a, b) {
		return true, nil
	}
	_, aLiteral := a.(rdf.Literal)
	_, bLiteral := b.(rdf.Literal)
	if !aLiteral || !bLiteral {
		return false, nil
	}
	if na, ok := numericValue(a); ok {
		if nb, ok := numericValue(b); ok {
			return compareNumbers(na, nb) == 0, nil
		}
		return false, nil
	}
	if ta, ok := dateTimeValue(a); ok {
		if tb, ok := dateTimeValue(b); ok {
			return ta.Equal(tb), nil
		}
		return false, nil
	}
	if ba, ok := booleanValue(a); ok {
		if bb, ok := booleanValue(b); ok {
			return ba == bb, nil
		}
		return false, nil
	}
	if _, _, ok := stringValue(a); ok {
		return false, nil
	}
	if _, _, ok := stringValue(b); ok {
		return false, nil
	}
	// distinct literals of datatypes we cannot compare by value
	return false, errType
}

// Answers -1, 0 or 1 comparing two literals of compatible types, for the <, >, <= and >= operators
func compareValues(a, b rdf.Term) (int, error) {
	if na, ok := numericValue(a); ok {
		if nb, ok := numericValue(b); ok {
			return compareNumbers(na, nb), nil
		}
		return 0, errType
	}
	if sa, langA, ok := stringValue(a); ok {
		if sb, langB, ok := stringValue(b); ok && langA == langB {
			return strings.Compare(sa, sb), nil
		}
		return 0, errType
	}
	if ta, ok := dateTimeValue(a); ok {
		if tb, ok := dateTimeValue(b); ok {
			return ta.Compare(tb), nil
		}
		return 0, errType
	}
	if ba, ok := booleanValue(a); ok {
		if bb, ok := booleanValue(b); ok {
			switch {
			case ba == bb:
				return 0, nil
			case bb:
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, errType
}

func compareNumbers(a, b number) int {
	if a.typ == numInteger && b.typ == numInteger {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	fa, fb := a.float(), b.float()
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func arithmetic(op string, left, right rdf.Term) (rdf.Term, error) {
	a, ok := numericValue(left)
	if !ok {
		return nil, errType
	}
	b, ok := numericValue(right)
	if !ok {
		return nil, errType
	}
	typ := a.typ
	if b.typ > typ {
		typ = b.typ
	}
	if op == "/" && typ == numInteger {
		typ = numDecimal
	}

	if typ == numInteger {
		if i, ok := integerArithmetic(op, a.i, b.i); ok {
			return newInteger(i), nil
		}
		// xsd:integer is unbounded; past int64 the result is carried as a decimal
		typ = numDecimal
	}

	fa, fb := a.float(), b.float()
	result := number{typ: typ}
	switch op {
	case "+":
		result.f = fa + fb
	case "-":
		result.f = fa - fb
	case "*":
		result.f = fa * fb
	default:
		if fb == 0 && typ == numDecimal {
			return nil, errType
		}
		result.f = fa / fb
	}
	return result.term(), nil
}

// Answers the result of integer + - or *, and false when it overflows int64
func integerArithmetic(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		r := a + b
		return r, (r > a) == (b > 0)
	case "-":
		r := a - b
		return r, (r < a) == (b > 0)
	default:
		if a == 0 || b == 0 {
			return 0, true
		}
		r := a * b
		return r, r/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
	}
}

func (e *callExpr) Eval(ctx *evalContext, s Solution) (rdf.Term, error) {
	// functions which do not evaluate all of their arguments
	switch e.name {
	case "BOUND":
		v, ok := e.args[0].(*varExpr)
		if !ok {
			return nil, errType
		}
		return newBoolean(s[v.name] != nil), nil
	case "IF":
		cond, err := ebvOf(ctx, e.args[0], s)
		if err != nil {
			return nil, err
		}
		if cond {
			return e.args[1].Eval(ctx, s)
		}
		return e.args[2].Eval(ctx, s)
	case "COALESCE":
		for _, arg := range e.args {
			v, err := arg.Eval(ctx, s)
			if isFatal(err) {
				return nil, err
			}
			if err == nil && v != nil {
				return v, nil
			}
		}
		return nil, errType
	case "BNODE":
		if len(e.args) == 0 {
			return ctx.freshBlank(), nil
		}
	}

	args := make([]rdf.Term, len(e.args))
	for i, arg := range e.args {
		v, err := arg.Eval(ctx, s)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if fn, ok := builtins[e.name]; ok {
		return fn(ctx, args)
	}
	if strings.HasPrefix(e.name, model.XsdNsUri) {
		return cast(e.name, args[0])
	}
	return nil, errType
}

type builtin func(ctx *evalContext, args []rdf.Term) (rdf.Term, error)

// arity of each builtin, as {min, max}; max -1 is variadic
var builtinArity = map[string][2]int{
	"BOUND": {1, 1}, "IF": {3, 3}, "COALESCE": {1, -1}, "BNODE": {0, 1},
	"STR": {1, 1}, "LANG": {1, 1}, "DATATYPE": {1, 1}, "IRI": {1, 1}, "URI": {1, 1},
	"ISIRI": {1, 1}, "ISURI": {1, 1}, "ISBLANK": {1, 1}, "ISLITERAL": {1, 1}, "ISNUMERIC": {1, 1},
	"REGEX": {2, 3}, "REPLACE": {3, 4}, "CONTAINS": {2, 2}, "STRSTARTS": {2, 2}, "STRENDS": {2, 2},
	"STRBEFORE": {2, 2}, "STRAFTER": {2, 2}, "STRLEN": {1, 1}, "UCASE": {1, 1}, "LCASE": {1, 1},
	"CONCAT": {0, -1}, "SUBSTR": {2, 3}, "ENCODE_FOR_URI": {1, 1}, "LANGMATCHES": {2, 2},
	"SAMETERM": {2, 2}, "STRLANG": {2, 2}, "STRDT": {2, 2},
	"ABS": {1, 1}, "CEIL": {1, 1}, "FLOOR": {1, 1}, "ROUND": {1, 1},
	"YEAR": {1, 1}, "MONTH": {1, 1}, "DAY": {1, 1}, "HOURS": {1, 1}, "MINUTES": {1, 1}, "SECONDS": {1, 1},
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"BNODE":          fnBnode,
		"STR":            fnStr,
		"LANG":           fnLang,
		"DATATYPE":       fnDatatype,
		"IRI":            fnIRI,
		"URI":            fnIRI,
		"ISIRI":          termTypeTest(rdf.TermIRI),
		"ISURI":          termTypeTest(rdf.TermIRI),
		"ISBLANK":        termTypeTest(rdf.TermBlank),
		"ISLITERAL":      termTypeTest(rdf.TermLiteral),
		"ISNUMERIC":      fnIsNumeric,
		"REGEX":          fnRegex,
		"REPLACE":        fnReplace,
		"CONTAINS":       stringTest(strings.Contains),
		"STRSTARTS":      stringTest(strings.HasPrefix),
		"STRENDS":        stringTest(strings.HasSuffix),
		"STRBEFORE":      fnStrBefore,
		"STRAFTER":       fnStrAfter,
		"STRLEN":         fnStrlen,
		"UCASE":          stringMap(strings.ToUpper),
		"LCASE":          stringMap(strings.ToLower),
		"CONCAT":         fnConcat,
		"SUBSTR":         fnSubstr,
		"ENCODE_FOR_URI": fnEncodeForURI,
		"LANGMATCHES":    fnLangMatches,
		"SAMETERM":       fnSameTerm,
		"STRLANG":        fnStrLang,
		"STRDT":          fnStrDT,
		"ABS":            numericMap(math.Abs),
		"CEIL":           numericMap(math.Ceil),
		"FLOOR":          numericMap(math.Floor),
		"ROUND":          numericMap(func(f float64) float64 { return math.Floor(f + 0.5) }),
		"YEAR":           dateTimePart(func(p dateParts) rdf.Term { return newInteger(int64(p.t.Year())) }),
		"MONTH":          dateTimePart(func(p dateParts) rdf.Term { return newInteger(int64(p.t.Month())) }),
		"DAY":            dateTimePart(func(p dateParts) rdf.Term { return newInteger(int64(p.t.Day())) }),
		"HOURS":          dateTimePart(func(p dateParts) rdf.Term { return newInteger(int64(p.t.Hour())) }),
		"MINUTES":        dateTimePart(func(p dateParts) rdf.Term { return newInteger(int64(p.t.Minute())) }),
		"SECONDS":        dateTimePart(seconds),
	}
}

func fnBnode(ctx *evalContext, args []rdf.Term) (rdf.Term, error) {
	label, _, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	return ctx.labelledBlank(label), nil
}

func fnStr(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	switch t := args[0].(type) {
	case rdf.IRI:
		return newString(t.String()), nil
	case rdf.Literal:
		return newString(t.String()), nil
	}
	return nil, errType
}

func fnLang(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	l, ok := args[0].(rdf.Literal)
	if !ok {
		return nil, errType
	}
	return newString(l.Lang()), nil
}

func fnDatatype(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	l, ok := args[0].(rdf.Literal)
	if !ok {
		return nil, errType
	}
	return model.Datatype(l), nil
}

func fnIRI(ctx *evalContext, args []rdf.Term) (rdf.Term, error) {
	if iri, ok := args[0].(rdf.IRI); ok {
		return iri, nil
	}
	lexical, lang, ok := stringValue(args[0])
	if !ok || lang != "" {
		return nil, errType
	}
	iri, err := rdf.NewIRI(resolveIRI(ctx.base, lexical))
	if err != nil {
		return nil, errType
	}
	return iri, nil
}

func termTypeTest(want rdf.TermType) builtin {
	return func(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
		return newBoolean(args[0].Type() == want), nil
	}
}

func fnIsNumeric(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	return newBoolean(isNumeric(args[0])), nil
}

func fnRegex(ctx *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, _, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	re, err := ctx.regexpFor(args[1:])
	if err != nil {
		return nil, err
	}
	return newBoolean(re.MatchString(text)), nil
}

func fnReplace(ctx *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, lang, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	replacement, _, ok := stringValue(args[2])
	if !ok {
		return nil, errType
	}
	flags := args[1:2]
	if len(args) == 4 {
		flags = []rdf.Term{args[1], args[3]}
	}
	re, err := ctx.regexpFor(flags)
	if err != nil {
		return nil, err
	}
	return newLangString(re.ReplaceAllString(text, replacement), lang), nil
}

// Compiles a pattern and optional flags argument, caching the result for the rest of the query
func (ctx *evalContext) regexpFor(args []rdf.Term) (*regexp.Regexp, error) {
	pattern, _, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	flags := ""
	if len(args) > 1 {
		if flags, _, ok = stringValue(args[1]); !ok {
			return nil, errType
		}
	}
	cacheKey := flags + "/" + pattern
	if re, ok := ctx.regexps[cacheKey]; ok {
		return re, nil
	}

	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			goFlags.WriteRune(f)
		case 'x':
			pattern = strings.Join(strings.Fields(pattern), "")
		case 'q':
			pattern = regexp.QuoteMeta(pattern)
		default:
			return nil, errType
		}
	}
	if goFlags.Len() > 0 {
		pattern = "(?" + goFlags.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// a pattern that can never match is a broken query, not a value error
		return nil, &fatalError{err: errors.Wrapf(err, "invalid regular expression %q", pattern)}
	}
	ctx.regexps[cacheKey] = re
	return re, nil
}

// Answers the two string arguments of CONTAINS and friends: the second must be simple or share the first's language
func stringPair(args []rdf.Term) (a, b, lang string, err error) {
	a, lang, okA := stringValue(args[0])
	b, langB, okB := stringValue(args[1])
	if !okA || !okB || (langB != "" && langB != lang) {
		return "", "", "", errType
	}
	return a, b, lang, nil
}

func stringTest(test func(s, substr string) bool) builtin {
	return func(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
		a, b, _, err := stringPair(args)
		if err != nil {
			return nil, err
		}
		return newBoolean(test(a, b)), nil
	}
}

func fnStrBefore(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	a, b, lang, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	before, _, found := strings.Cut(a, b)
	if !found {
		return newString(""), nil
	}
	return newLangString(before, lang), nil
}

func fnStrAfter(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	a, b, lang, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	_, after, found := strings.Cut(a, b)
	if !found {
		return newString(""), nil
	}
	return newLangString(after, lang), nil
}

func fnStrlen(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, _, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	return newInteger(int64(utf8.RuneCountInString(text))), nil
}

func stringMap(fn func(string) string) builtin {
	return func(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
		text, lang, ok := stringValue(args[0])
		if !ok {
			return nil, errType
		}
		return newLangString(fn(text), lang), nil
	}
}

func fnConcat(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	var sb strings.Builder
	lang := ""
	for i, arg := range args {
		text, l, ok := stringValue(arg)
		if !ok {
			return nil, errType
		}
		if i == 0 {
			lang = l
		} else if l != lang {
			lang = ""
		}
		sb.WriteString(text)
	}
	return newLangString(sb.String(), lang), nil
}

func fnSubstr(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, lang, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	start, ok := numericValue(args[1])
	if !ok {
		return nil, errType
	}
	first := math.Floor(start.float() + 0.5)
	last := math.Inf(1)
	if len(args) == 3 {
		length, ok := numericValue(args[2])
		if !ok {
			return nil, errType
		}
		last = first + math.Floor(length.float()+0.5)
	}

	var sb strings.Builder
	position := 1.0
	for _, r := range text {
		if position >= first && position < last {
			sb.WriteRune(r)
		}
		position++
	}
	return newLangString(sb.String(), lang), nil
}

func fnEncodeForURI(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, _, ok := stringValue(args[0])
	if !ok {
		return nil, errType
	}
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || strings.IndexByte("-_.~", c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0xF])
	}
	return newString(sb.String()), nil
}

func fnLangMatches(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	tag, _, okTag := stringValue(args[0])
	languageRange, _, okRange := stringValue(args[1])
	if !okTag || !okRange {
		return nil, errType
	}
	if languageRange == "*" {
		return newBoolean(tag != ""), nil
	}
	tag, languageRange = strings.ToLower(tag), strings.ToLower(languageRange)
	return newBoolean(tag == languageRange || strings.HasPrefix(tag, languageRange+"-")), nil
}

func fnSameTerm(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	return newBoolean(model.Equal(args[0], args[1])), nil
}

func fnStrLang(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, lang, ok := stringValue(args[0])
	if !ok || lang != "" {
		return nil, errType
	}
	tag, _, ok := stringValue(args[1])
	if !ok || tag == "" {
		return nil, errType
	}
	l, err := rdf.NewLangLiteral(text, tag)
	if err != nil {
		return nil, errType
	}
	return l, nil
}

func fnStrDT(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
	text, lang, ok := stringValue(args[0])
	if !ok || lang != "" {
		return nil, errType
	}
	dt, ok := args[1].(rdf.IRI)
	if !ok {
		return nil, errType
	}
	return rdf.NewTypedLiteral(text, dt), nil
}

func numericMap(fn func(float64) float64) builtin {
	return func(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
		n, ok := numericValue(args[0])
		if !ok {
			return nil, errType
		}
		if n.typ == numInteger {
			return newInteger(int64(fn(float64(n.i)))), nil
		}
		n.f = fn(n.f)
		return n.term(), nil
	}
}

type dateParts struct {
	t time.Time
}

func dateTimePart(part func(dateParts) rdf.Term) builtin {
	return func(_ *evalContext, args []rdf.Term) (rdf.Term, error) {
		t, ok := dateTimeValue(args[0])
		if !ok {
			return nil, errType
		}
		return part(dateParts{t: t}), nil
	}
}

func seconds(p dateParts) rdf.Term {
	s := float64(p.t.Second()) + float64(p.t.Nanosecond())/1e9
	return number{typ: numDecimal, f: s}.term()
}

// Casts a term to one of the XSD datatypes, e.g. xsd:integer("42")
func cast(datatype string, t rdf.Term) (rdf.Term, error) {
	var lexical string
	switch v := t.(type) {
	case rdf.IRI:
		if datatype != model.XsdString.String() {
			return nil, errType
		}
		return newString(v.String()), nil
	case rdf.Literal:
		lexical = strings.TrimSpace(v.String())
	default:
		return nil, errType
	}

	switch datatype {
	case model.XsdString.String():
		return newString(t.(rdf.Literal).String()), nil
	case model.XsdBoolean.String():
		if b, ok := booleanValue(t); ok {
			return newBoolean(b), nil
		}
		if n, ok := numericValue(t); ok {
			return newBoolean(n.float() != 0 && !math.IsNaN(n.float())), nil
		}
		switch lexical {
		case "true", "1":
			return newBoolean(true), nil
		case "false", "0":
			return newBoolean(false), nil
		}
	case model.XsdInteger.String():
		if n, ok := numericValue(t); ok {
			return newInteger(int64(n.float())), nil
		}
		if b, ok := booleanValue(t); ok {
			if b {
				return newInteger(1), nil
			}
			return newInteger(0), nil
		}
		if n, ok := numericValue(rdf.NewTypedLiteral(lexical, model.XsdInteger)); ok {
			return n.term(), nil
		}
	case model.XsdDecimal.String(), model.XsdDouble.String(), model.XsdFloat.String():
		typ := map[string]numType{
			model.XsdDecimal.String(): numDecimal,
			model.XsdDouble.String():  numDouble,
			model.XsdFloat.String():   numFloat,
		}[datatype]
		if n, ok := numericValue(t); ok {
			return number{typ: typ, f: n.float()}.term(), nil
		}
		if f, ok := parseDouble(lexical); ok && (typ != numDecimal || !math.IsInf(f, 0) && !math.IsNaN(f)) {
			return number{typ: typ, f: f}.term(), nil
		}
	case model.XsdDateTime.String():
		if tm, ok := dateTimeValue(rdf.NewTypedLiteral(lexical, model.XsdDateTime)); ok {
			return rdf.NewTypedLiteral(tm.Format(time.RFC3339Nano), model.XsdDateTime), nil
		}
	}
	return nil, errType
}
