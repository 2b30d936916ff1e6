// Package formula evaluates caller-supplied ranking formulas over a device's
// metric values. The grammar is deliberately tiny: numeric literals, the four
// arithmetic operators, and parentheses. Metric keys are substituted
// textually before parsing, and the substituted string must pass a character
// whitelist, so untrusted formula text can never reach anything beyond basic
// arithmetic.
package formula

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var allowed = regexp.MustCompile(`^[0-9+\-*/().\s]*$`)

// Evaluate substitutes each key in vars into the formula (whole-word matches
// only; keys without a value substitute as 0), validates the result against
// the arithmetic whitelist, and evaluates it. The second return is false on
// any failure: leftover identifiers, syntax errors, division by zero, or a
// non-finite result. Failures never panic.
func Evaluate(text string, keys []string, vars map[string]float64) (float64, bool) {
	expr := strings.TrimSpace(text)
	if expr == "" {
		return math.NaN(), false
	}
	expr = substitute(expr, keys, vars)
	if !allowed.MatchString(expr) {
		return math.NaN(), false
	}
	p := parser{input: expr}
	v, ok := p.parse()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

func substitute(expr string, keys []string, vars map[string]float64) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(key) + `\b`)
		if err != nil {
			continue
		}
		value := vars[key]
		// 'f' formatting keeps the replacement inside the whitelist (no
		// exponent markers).
		repl := strconv.FormatFloat(value, 'f', -1, 64)
		if value < 0 {
			repl = "(" + repl + ")"
		}
		expr = re.ReplaceAllString(expr, repl)
	}
	return expr
}

// parser is a recursive-descent evaluator over the validated expression:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "(" expr ")" | "-" factor
type parser struct {
	input string
	pos   int
	bad   bool
}

func (p *parser) parse() (float64, bool) {
	v := p.expr()
	p.skipSpace()
	if p.bad || p.pos != len(p.input) {
		return math.NaN(), false
	}
	return v, true
}

func (p *parser) expr() float64 {
	v := p.term()
	for !p.bad {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			v += p.term()
		case '-':
			p.pos++
			v -= p.term()
		default:
			return v
		}
	}
	return v
}

func (p *parser) term() float64 {
	v := p.factor()
	for !p.bad {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			v *= p.factor()
		case '/':
			p.pos++
			d := p.factor()
			if d == 0 {
				p.bad = true
				return math.NaN()
			}
			v /= d
		default:
			return v
		}
	}
	return v
}

func (p *parser) factor() float64 {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		return -p.factor()
	case c == '(':
		p.pos++
		v := p.expr()
		p.skipSpace()
		if p.peek() != ')' {
			p.bad = true
			return math.NaN()
		}
		p.pos++
		return v
	case c >= '0' && c <= '9' || c == '.':
		return p.number()
	default:
		p.bad = true
		return math.NaN()
	}
}

func (p *parser) number() float64 {
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' {
			if seenDot {
				p.bad = true
				return math.NaN()
			}
			seenDot = true
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		p.bad = true
		return math.NaN()
	}
	return v
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}
