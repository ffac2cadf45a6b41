package qb

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding is one named parameter of a generated statement. Name carries no
// leading colon.
type Binding struct {
	Name  string
	Value any
}

// Placeholder returns the token used for the binding in SQL text.
func (b Binding) Placeholder() string {
	return ":" + b.Name
}

// Bindings keeps parameters in the order they were allocated.
type Bindings []Binding

// Map returns the bindings keyed by name.
func (bs Bindings) Map() map[string]any {
	m := make(map[string]any, len(bs))
	for _, b := range bs {
		m[b.Name] = b.Value
	}

	return m
}

// Names lists binding names in allocation order.
func (bs Bindings) Names() []string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}

	return names
}

// compiler accumulates bindings for one statement. Names handed out are
// unique within it.
type compiler struct {
	dialect  Dialect
	bindLike bool
	bindings Bindings
	used     map[string]struct{}
}

func newCompiler(d Dialect, bindLike bool) *compiler {
	return &compiler{dialect: d, bindLike: bindLike, used: make(map[string]struct{})}
}

// bind allocates a placeholder derived from base and records value for it.
// On collision the name is suffixed with _2, _3 and so on.
func (c *compiler) bind(base string, value any) string {
	name := base
	for n := 2; c.taken(name); n++ {
		name = base + "_" + strconv.Itoa(n)
	}

	c.used[name] = struct{}{}
	c.bindings = append(c.bindings, Binding{Name: name, Value: value})

	return ":" + name
}

func (c *compiler) taken(name string) bool {
	_, ok := c.used[name]
	return ok
}

// mark returns the current binding count so a caller can slice the bindings
// that belong to one part of a compound statement.
func (c *compiler) mark() int {
	return len(c.bindings)
}

func (c *compiler) since(mark int) Bindings {
	return append(Bindings(nil), c.bindings[mark:]...)
}

// where compiles filter as the root group. It returns "" for an empty filter.
func (c *compiler) where(filter Expr) (string, error) {
	g := asGroup(filter)
	if g.Empty() {
		return "", nil
	}

	return g.compile(c, 1)
}

// Compile renders filter as a parenthesized fragment with named placeholders.
// An empty filter yields "( )". LIKE patterns are quoted for DefaultDialect.
func Compile(filter Expr) (string, Bindings, error) {
	c := newCompiler(DefaultDialect, false)

	g := asGroup(filter)
	if g.Empty() {
		return "( )", nil, nil
	}

	frag, err := g.compile(c, 1)
	if err != nil {
		return "", nil, err
	}

	return frag, c.bindings, nil
}

func (g Group) compile(c *compiler, depth int) (string, error) {
	if depth > maxFilterDepth {
		return "", fmt.Errorf("%w: nesting deeper than %d", ErrMalformedFilter, maxFilterDepth)
	}

	connector := g.Connector
	switch strings.ToUpper(string(connector)) {
	case "", string(ConnectorAnd):
		connector = ConnectorAnd
	case string(ConnectorOr):
		connector = ConnectorOr
	default:
		return "", fmt.Errorf("%w: connector %q", ErrMalformedFilter, g.Connector)
	}

	parts := make([]string, 0, len(g.Exprs))

	for _, e := range g.Exprs {
		if isNilExpr(e) {
			continue
		}

		childDepth := depth

		if sub, ok := subGroup(e); ok {
			if sub.Empty() {
				return "", fmt.Errorf("%w: empty %s group", ErrMalformedFilter, sub.Connector)
			}

			childDepth = depth + 1
		}

		frag, err := e.compile(c, childDepth)
		if err != nil {
			return "", err
		}

		parts = append(parts, frag)
	}

	if len(parts) == 0 {
		return "( )", nil
	}

	return "( " + strings.Join(parts, " "+string(connector)+" ") + " )", nil
}

func subGroup(e Expr) (Group, bool) {
	switch g := e.(type) {
	case Group:
		return g, true
	case *Group:
		return *g, true
	default:
		return Group{}, false
	}
}

func (e Equality) compile(c *compiler, depth int) (string, error) {
	field, err := validateAndQuote(e.Field)
	if err != nil {
		return "", err
	}

	return field + " = " + c.bind(placeholderBase(e.Field, depth), e.Value), nil
}

var comparisonOps = map[string]struct{}{
	"=":  {},
	"!=": {},
	"<>": {},
	">":  {},
	"<":  {},
	">=": {},
	"<=": {},
}

func (e Comparison) compile(c *compiler, depth int) (string, error) {
	op := strings.ToUpper(strings.TrimSpace(e.Op))

	switch op {
	case "IS":
		return compileIs(c, e.Field, e.Value, depth)
	case "LIKE":
		pattern, ok := e.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: LIKE operand of %q must be a string", ErrMalformedFilter, e.Field)
		}

		return Pattern{Field: e.Field, Pattern: pattern}.compile(c, depth)
	case "IN":
		values, ok := toSlice(e.Value)
		if !ok {
			return "", fmt.Errorf("%w: IN operand of %q must be a list", ErrMalformedFilter, e.Field)
		}

		return Membership{Field: e.Field, Values: values}.compile(c, depth)
	}

	if _, ok := comparisonOps[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op)
	}

	field, err := validateAndQuote(e.Field)
	if err != nil {
		return "", err
	}

	return field + " " + op + " " + c.bind(placeholderBase(e.Field, depth), e.Value), nil
}

func compileIs(c *compiler, field string, operand any, depth int) (string, error) {
	s, ok := operand.(string)
	if !ok {
		if operand != nil {
			return "", fmt.Errorf("%w: IS operand of %q must be NULL or NOT NULL", ErrMalformedFilter, field)
		}

		s = "NULL"
	}

	switch strings.Join(strings.Fields(strings.ToUpper(s)), " ") {
	case "NULL":
		return NullCheck{Field: field}.compile(c, depth)
	case "NOT NULL":
		return NullCheck{Field: field, Not: true}.compile(c, depth)
	default:
		return "", fmt.Errorf("%w: IS operand of %q must be NULL or NOT NULL, got %q", ErrMalformedFilter, field, s)
	}
}

func (e Membership) compile(c *compiler, depth int) (string, error) {
	field, err := validateAndQuote(e.Field)
	if err != nil {
		return "", err
	}

	if len(e.Values) == 0 {
		return "", fmt.Errorf("%w: IN list of %q is empty", ErrMalformedFilter, e.Field)
	}

	base := placeholderBase(e.Field, depth)
	vars := make([]string, len(e.Values))

	for i, v := range e.Values {
		vars[i] = c.bind(base+"_"+strconv.Itoa(i), v)
	}

	return field + " IN (" + strings.Join(vars, ", ") + ")", nil
}

func (e NullCheck) compile(_ *compiler, _ int) (string, error) {
	field, err := validateAndQuote(e.Field)
	if err != nil {
		return "", err
	}

	if e.Not {
		return field + " IS NOT NULL", nil
	}

	return field + " IS NULL", nil
}

func (e Pattern) compile(c *compiler, depth int) (string, error) {
	field, err := validateAndQuote(e.Field)
	if err != nil {
		return "", err
	}

	if c.bindLike {
		return field + " LIKE " + c.bind(placeholderBase(e.Field, depth), e.Pattern), nil
	}

	literal, err := inlinePattern(c.dialect, e.Pattern)
	if err != nil {
		return "", err
	}

	return field + " LIKE " + literal, nil
}

// inlinePattern is the only place where caller supplied text is written into
// SQL without a placeholder. Quoting follows the dialect's string rules.
func inlinePattern(d Dialect, pattern string) (string, error) {
	return RenderLiteral(d, pattern)
}

// placeholderBase derives a placeholder name from a field. Identifier
// characters that cannot appear in a placeholder token become underscores,
// and a leading digit is prefixed with one so the token still scans.
func placeholderBase(field string, n int) string {
	var sb strings.Builder

	sb.Grow(len(field) + 5)

	if field != "" && field[0] >= '0' && field[0] <= '9' {
		sb.WriteByte('_')
	}

	for i := 0; i < len(field); i++ {
		if isPlaceholderChar(field[i]) {
			sb.WriteByte(field[i])
		} else {
			sb.WriteByte('_')
		}
	}

	sb.WriteByte('_')
	sb.WriteString(strconv.Itoa(n))

	return sb.String()
}
