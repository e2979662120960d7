// This file converts circuits to and from OpenQASM 2.0 text.

package ibmq

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Pre-compiled regular expressions for OpenQASM parsing.
var (
	qasmHeaderRe  = regexp.MustCompile(`^OPENQASM\s+\d+(\.\d+)?$`)
	qasmIncludeRe = regexp.MustCompile(`^include\s+"[^"]*"$`)
	qasmRegRe     = regexp.MustCompile(`^(qreg|creg)\s+([A-Za-z_]\w*)\s*\[\s*(\d+)\s*\]$`)
	qasmMeasureRe = regexp.MustCompile(`^measure\s+(\S+)\s*->\s*(\S+)$`)
	qasmGateRe    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\((.*)\))?\s*([^()]+)$`)
	qasmOperandRe = regexp.MustCompile(`^([A-Za-z_]\w*)(?:\s*\[\s*(\d+)\s*\])?$`)
)

// MaxQASMWidth bounds the total number of qubits, and separately of classical
// bits, that a program parsed by ParseQASM may declare.
const MaxQASMWidth = 1 << 16

// ToQASM renders the circuit as OpenQASM 2.0 using a single quantum register
// q and a single classical register c.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.NumQubits)
	if c.NumBits > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.NumBits)
	}
	for _, g := range c.Gates {
		if g.Name == "measure" {
			for i, q := range g.Qubits {
				fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", q, g.Bits[i])
			}
			continue
		}
		sb.WriteString(g.Name)
		if len(g.Params) > 0 {
			ps := make([]string, len(g.Params))
			for i, p := range g.Params {
				ps[i] = strconv.FormatFloat(p, 'g', -1, 64)
			}
			sb.WriteString("(" + strings.Join(ps, ",") + ")")
		}
		qs := make([]string, len(g.Qubits))
		for i, q := range g.Qubits {
			qs[i] = fmt.Sprintf("q[%d]", q)
		}
		sb.WriteString(" " + strings.Join(qs, ",") + ";\n")
	}
	return sb.String()
}

// qasmRegister records where a named register lives in the flattened index
// space.
type qasmRegister struct {
	offset int
	size   int
}

// qasmParser holds the state accumulated while parsing.
type qasmParser struct {
	qregs map[string]qasmRegister
	cregs map[string]qasmRegister
	circ  *Circuit
}

// ParseQASM parses an OpenQASM 2.0 program into a Circuit.  Registers are
// flattened in declaration order.  Only the gates a Circuit supports are
// accepted; custom gate definitions and classical conditions are not.
func ParseQASM(src string) (*Circuit, error) {
	p := &qasmParser{
		qregs: make(map[string]qasmRegister),
		cregs: make(map[string]qasmRegister),
		circ:  NewCircuit(0, 0),
	}

	// Strip comments, then split into statements.
	lines := strings.Split(src, "\n")
	for i, ln := range lines {
		if idx := strings.Index(ln, "//"); idx >= 0 {
			lines[i] = ln[:idx]
		}
	}
	stmts := strings.Split(strings.Join(lines, "\n"), ";")
	for _, st := range stmts {
		st = strings.Join(strings.Fields(st), " ")
		if st == "" {
			continue
		}
		if err := p.statement(st); err != nil {
			return nil, errors.Wrapf(err, "parse %q", st)
		}
	}
	if err := p.circ.Validate(); err != nil {
		return nil, err
	}
	return p.circ, nil
}

// statement parses a single statement (without its trailing semicolon).
func (p *qasmParser) statement(st string) error {
	switch {
	case qasmHeaderRe.MatchString(st), qasmIncludeRe.MatchString(st):
		return nil
	case qasmRegRe.MatchString(st):
		m := qasmRegRe.FindStringSubmatch(st)
		size, err := strconv.Atoi(m[3])
		if err != nil {
			return errors.Wrapf(err, "size of register %s", m[2])
		}
		total := p.circ.NumBits
		if m[1] == "qreg" {
			total = p.circ.NumQubits
		}
		if size > MaxQASMWidth-total {
			return errors.Errorf("register %s[%d] takes the %s total past %d", m[2], size, m[1], MaxQASMWidth)
		}
		if m[1] == "qreg" {
			p.qregs[m[2]] = qasmRegister{offset: p.circ.NumQubits, size: size}
			p.circ.NumQubits += size
		} else {
			p.cregs[m[2]] = qasmRegister{offset: p.circ.NumBits, size: size}
			p.circ.NumBits += size
		}
		return nil
	case qasmMeasureRe.MatchString(st):
		m := qasmMeasureRe.FindStringSubmatch(st)
		qs, err := p.operand(p.qregs, m[1])
		if err != nil {
			return err
		}
		bs, err := p.operand(p.cregs, m[2])
		if err != nil {
			return err
		}
		if len(qs) != len(bs) {
			return errors.Errorf("measure maps %d qubits onto %d bits", len(qs), len(bs))
		}
		for i := range qs {
			p.circ.Gates = append(p.circ.Gates, Gate{
				Name:   "measure",
				Qubits: []int{qs[i]},
				Bits:   []int{bs[i]},
			})
		}
		return nil
	case strings.HasPrefix(st, "gate ") || strings.HasPrefix(st, "if"):
		return errors.Wrap(ErrUnsupportedGate, "custom gates and classical conditions")
	}
	return p.gate(st)
}

// gate parses a gate application, broadcasting over whole-register operands.
func (p *qasmParser) gate(st string) error {
	m := qasmGateRe.FindStringSubmatch(st)
	if m == nil {
		return errors.New("unrecognized statement")
	}
	name := strings.ToLower(m[1])
	switch name {
	case "cnot":
		name = "cx"
	case "u":
		name = "u3"
	}
	ar, ok := gateArities[name]
	if !ok || name == "measure" {
		return errors.Wrapf(ErrUnsupportedGate, "%q", m[1])
	}

	// Evaluate the parameter expressions.
	var params []float64
	if strings.TrimSpace(m[2]) != "" {
		for _, expr := range strings.Split(m[2], ",") {
			v, err := evalParam(expr)
			if err != nil {
				return err
			}
			params = append(params, v)
		}
	}

	// Resolve each operand to one or more qubits.
	var args [][]int
	width := 1
	for _, opnd := range strings.Split(m[3], ",") {
		qs, err := p.operand(p.qregs, strings.TrimSpace(opnd))
		if err != nil {
			return err
		}
		if len(qs) > 1 {
			if width > 1 && len(qs) != width {
				return errors.New("register operands have mismatched sizes")
			}
			width = len(qs)
		}
		args = append(args, qs)
	}

	// A barrier takes all of its operands at once.
	if name == "barrier" {
		var qs []int
		for _, a := range args {
			qs = append(qs, a...)
		}
		p.circ.Gates = append(p.circ.Gates, Gate{Name: name, Qubits: qs})
		return nil
	}
	if len(args) != ar.qubits {
		return errors.Errorf("%s expects %d operands but has %d", name, ar.qubits, len(args))
	}
	for i := 0; i < width; i++ {
		g := Gate{Name: name, Qubits: make([]int, len(args))}
		if params != nil {
			g.Params = append([]float64(nil), params...)
		}
		for j, a := range args {
			if len(a) == 1 {
				g.Qubits[j] = a[0]
			} else {
				g.Qubits[j] = a[i]
			}
		}
		p.circ.Gates = append(p.circ.Gates, g)
	}
	return nil
}

// operand resolves "r" or "r[i]" against a set of registers.
func (p *qasmParser) operand(regs map[string]qasmRegister, s string) ([]int, error) {
	m := qasmOperandRe.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.Errorf("malformed operand %q", s)
	}
	reg, ok := regs[m[1]]
	if !ok {
		return nil, errors.Errorf("undeclared register %q", m[1])
	}
	if m[2] == "" {
		idx := make([]int, reg.size)
		for i := range idx {
			idx[i] = reg.offset + i
		}
		return idx, nil
	}
	i, err := strconv.Atoi(m[2])
	if err != nil || i >= reg.size {
		return nil, errors.Errorf("index %d out of range for register %s[%d]", i, m[1], reg.size)
	}
	return []int{reg.offset + i}, nil
}

// exprParser evaluates the arithmetic allowed in gate parameters: numbers, pi,
// unary minus, + - * /, and parentheses.
type exprParser struct {
	s   string
	pos int
}

// evalParam evaluates a single parameter expression.
func evalParam(s string) (float64, error) {
	ep := &exprParser{s: strings.ReplaceAll(s, " ", "")}
	v, err := ep.sum()
	if err != nil {
		return 0, err
	}
	if ep.pos != len(ep.s) {
		return 0, errors.Errorf("unexpected %q in parameter %q", ep.s[ep.pos:], s)
	}
	return v, nil
}

func (ep *exprParser) peek() byte {
	if ep.pos < len(ep.s) {
		return ep.s[ep.pos]
	}
	return 0
}

func (ep *exprParser) sum() (float64, error) {
	v, err := ep.product()
	if err != nil {
		return 0, err
	}
	for {
		switch ep.peek() {
		case '+':
			ep.pos++
			r, err := ep.product()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			ep.pos++
			r, err := ep.product()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (ep *exprParser) product() (float64, error) {
	v, err := ep.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch ep.peek() {
		case '*':
			ep.pos++
			r, err := ep.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			ep.pos++
			r, err := ep.unary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.Errorf("division by zero in %q", ep.s)
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (ep *exprParser) unary() (float64, error) {
	switch ep.peek() {
	case '-':
		ep.pos++
		v, err := ep.unary()
		return -v, err
	case '+':
		ep.pos++
		return ep.unary()
	case '(':
		ep.pos++
		v, err := ep.sum()
		if err != nil {
			return 0, err
		}
		if ep.peek() != ')' {
			return 0, errors.Errorf("missing ')' in %q", ep.s)
		}
		ep.pos++
		return v, nil
	}
	if strings.HasPrefix(ep.s[ep.pos:], "pi") {
		ep.pos += 2
		return math.Pi, nil
	}
	start := ep.pos
	for ep.pos < len(ep.s) {
		ch := ep.s[ep.pos]
		isExp := (ch == 'e' || ch == 'E') && ep.pos > start
		isSign := (ch == '-' || ch == '+') && ep.pos > start && (ep.s[ep.pos-1] == 'e' || ep.s[ep.pos-1] == 'E')
		if (ch >= '0' && ch <= '9') || ch == '.' || isExp || isSign {
			ep.pos++
			continue
		}
		break
	}
	if start == ep.pos {
		return 0, errors.Errorf("expected a number in %q", ep.s)
	}
	return strconv.ParseFloat(ep.s[start:ep.pos], 64)
}
