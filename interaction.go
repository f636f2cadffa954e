package qspace

import (
	"github.com/ksaito/qspace/mat"
)

// TermOp selects an operator acting on one subsystem. Exactly one of Op and
// Name is set: Op freezes the given matrix, while Name is resolved from the
// subsystem at every Hamiltonian build so that parameter changes are picked up.
type TermOp struct {
	Subsystem int
	Op        *mat.COO
	Name      string
}

// TermOptions are options for constructing interaction terms.
type TermOptions struct {
	hermitianConjugate bool
}

// NewTermOptions returns the default interaction term options.
func NewTermOptions() TermOptions {
	return TermOptions{}
}

// HermitianConjugate sets whether the Hermitian conjugate of the term is added
// along with the term itself.
func (opt TermOptions) HermitianConjugate(v bool) TermOptions {
	opt.hermitianConjugate = v
	return opt
}

// Term is one interaction contribution to a composite Hamiltonian.
// Terms are immutable once constructed and may be shared between spaces.
type Term struct {
	strength complex128
	ops      []TermOp

	expr     Expr
	bindings map[string]TermOp

	hermitianConjugate bool
}

// NewTerm returns the product interaction strength*op_1*op_2*...*op_n.
// Operators on distinct subsystems combine by tensor product, operators listed
// for the same subsystem multiply locally in listed order.
func NewTerm(strength complex128, ops []TermOp, options ...TermOptions) (*Term, error) {
	opt := NewTermOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	if len(ops) == 0 {
		return nil, constructionErrorf("term without operators")
	}
	for i, op := range ops {
		if err := checkTermOp(op); err != nil {
			return nil, wrapConstruction(err, "operator %d", i)
		}
	}

	t := &Term{strength: strength, ops: ops, hermitianConjugate: opt.hermitianConjugate}
	return t, nil
}

// NewExprTerm returns the interaction strength*expr, where every Op leaf of
// expr is bound to a subsystem operator by the bindings map. Leaves missing
// from the map are an error.
func NewExprTerm(strength complex128, expr Expr, bindings map[string]TermOp, options ...TermOptions) (*Term, error) {
	opt := NewTermOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	if expr == nil {
		return nil, constructionErrorf("nil expression")
	}
	if err := expr.validate(bindings); err != nil {
		return nil, err
	}
	for name, op := range bindings {
		if err := checkTermOp(op); err != nil {
			return nil, wrapConstruction(err, "binding %q", name)
		}
	}

	t := &Term{strength: strength, expr: expr, bindings: bindings, hermitianConjugate: opt.hermitianConjugate}
	return t, nil
}

func checkTermOp(op TermOp) error {
	if op.Subsystem < 0 {
		return constructionErrorf("subsystem %d negative", op.Subsystem)
	}
	if op.Op == nil && op.Name == "" {
		return constructionErrorf("neither a matrix nor an operator name")
	}
	if op.Op != nil && op.Name != "" {
		return constructionErrorf("both a matrix and an operator name %q", op.Name)
	}
	return nil
}

// evaluate builds the term's composite-space matrix, including the Hermitian
// conjugate when the term was constructed with that option.
func (t *Term) evaluate(subs []Subsystem, dims []int) (*mat.COO, error) {
	var m *mat.COO
	var err error
	switch {
	case t.expr != nil:
		m, err = t.expr.eval(subs, dims, t.bindings)
	default:
		m, err = t.evalProduct(subs, dims)
	}
	if err != nil {
		return nil, err
	}

	m.Scale(t.strength)
	if t.hermitianConjugate {
		m.Add(1, m.Dagger())
	}
	return m, nil
}

func (t *Term) evalProduct(subs []Subsystem, dims []int) (*mat.COO, error) {
	slotOps := make(map[int]*mat.COO, len(t.ops))
	for i, to := range t.ops {
		op, err := resolveTermOp(to, subs, dims)
		if err != nil {
			return nil, wrapConstruction(err, "operator %d", i)
		}
		cur, ok := slotOps[to.Subsystem]
		switch {
		case ok:
			slotOps[to.Subsystem] = cur.MatMul(op)
		default:
			slotOps[to.Subsystem] = op
		}
	}
	return Embed(dims, slotOps)
}

func resolveTermOp(to TermOp, subs []Subsystem, dims []int) (*mat.COO, error) {
	if to.Subsystem < 0 || to.Subsystem >= len(subs) {
		return nil, constructionErrorf("subsystem %d out of range [0, %d)", to.Subsystem, len(subs))
	}
	op := to.Op
	if op == nil {
		var err error
		op, err = subs[to.Subsystem].Operator(to.Name)
		if err != nil {
			return nil, wrapConstruction(err, "subsystem %d operator %q", to.Subsystem, to.Name)
		}
	}
	if op.Rows() != op.Cols() || op.Rows() != dims[to.Subsystem] {
		return nil, constructionErrorf("operator %dx%d, subsystem %d dimension %d", op.Rows(), op.Cols(), to.Subsystem, dims[to.Subsystem])
	}
	return op, nil
}

// Expr is a symbolic interaction expression over named subsystem operators.
// The node set is closed: expressions are built from Op leaves combined by
// Add, Mul, Scale and Dag.
type Expr interface {
	eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error)
	validate(bindings map[string]TermOp) error
}

type opRef struct {
	name string
}

// Op is an expression leaf referring to a bound subsystem operator.
func Op(name string) Expr {
	return opRef{name: name}
}

func (o opRef) eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error) {
	to := bindings[o.name]
	op, err := resolveTermOp(to, subs, dims)
	if err != nil {
		return nil, wrapConstruction(err, "operator %q", o.name)
	}
	return Embed(dims, map[int]*mat.COO{to.Subsystem: op})
}

func (o opRef) validate(bindings map[string]TermOp) error {
	if _, ok := bindings[o.name]; !ok {
		return constructionErrorf("operator %q not bound", o.name)
	}
	return nil
}

type exprAdd struct {
	terms []Expr
}

// Add is the sum of its operand expressions.
func Add(xs ...Expr) Expr {
	return exprAdd{terms: xs}
}

func (e exprAdd) eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error) {
	sum, err := e.terms[0].eval(subs, dims, bindings)
	if err != nil {
		return nil, err
	}
	for _, x := range e.terms[1:] {
		m, err := x.eval(subs, dims, bindings)
		if err != nil {
			return nil, err
		}
		sum.Add(1, m)
	}
	return sum, nil
}

func (e exprAdd) validate(bindings map[string]TermOp) error {
	return validateOperands(e.terms, bindings)
}

type exprMul struct {
	factors []Expr
}

// Mul is the operator product of its operand expressions, in listed order.
func Mul(xs ...Expr) Expr {
	return exprMul{factors: xs}
}

func (e exprMul) eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error) {
	prod, err := e.factors[0].eval(subs, dims, bindings)
	if err != nil {
		return nil, err
	}
	for _, x := range e.factors[1:] {
		m, err := x.eval(subs, dims, bindings)
		if err != nil {
			return nil, err
		}
		prod = prod.MatMul(m)
	}
	return prod, nil
}

func (e exprMul) validate(bindings map[string]TermOp) error {
	return validateOperands(e.factors, bindings)
}

type exprScale struct {
	c complex128
	x Expr
}

// Scale multiplies an expression by a complex coefficient.
func Scale(c complex128, x Expr) Expr {
	return exprScale{c: c, x: x}
}

func (e exprScale) eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error) {
	m, err := e.x.eval(subs, dims, bindings)
	if err != nil {
		return nil, err
	}
	m.Scale(e.c)
	return m, nil
}

func (e exprScale) validate(bindings map[string]TermOp) error {
	return validateOperands([]Expr{e.x}, bindings)
}

type exprDag struct {
	x Expr
}

// Dag is the Hermitian conjugate of an expression.
func Dag(x Expr) Expr {
	return exprDag{x: x}
}

func (e exprDag) eval(subs []Subsystem, dims []int, bindings map[string]TermOp) (*mat.COO, error) {
	m, err := e.x.eval(subs, dims, bindings)
	if err != nil {
		return nil, err
	}
	return m.Dagger(), nil
}

func (e exprDag) validate(bindings map[string]TermOp) error {
	return validateOperands([]Expr{e.x}, bindings)
}

func validateOperands(xs []Expr, bindings map[string]TermOp) error {
	if len(xs) == 0 {
		return constructionErrorf("expression without operands")
	}
	for _, x := range xs {
		if x == nil {
			return constructionErrorf("nil operand")
		}
		if err := x.validate(bindings); err != nil {
			return err
		}
	}
	return nil
}
