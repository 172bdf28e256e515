package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
)

type calculatorInput struct {
	Expression string `json:"expression"`
}

func (b *Builtin) calculatorTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression. Supports +, -, *, /, %, parentheses, and decimal numbers.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"expression":{"type":"string","description":"Mathematical expression to evaluate"}},"required":["expression"]}`),
		Handler:     b.handleCalculator,
	}
}

func (b *Builtin) handleCalculator(_ context.Context, input json.RawMessage) (string, error) {
	var in calculatorInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("calculator: invalid input: %w", err)
	}

	if strings.TrimSpace(in.Expression) == "" {
		return "", fmt.Errorf("calculator: expression is required")
	}

	v, err := evalExpression(in.Expression)
	if err != nil {
		return "", fmt.Errorf("calculator: %w", err)
	}

	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", fmt.Errorf("calculator: result is not a finite number")
	}

	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// evalExpression evaluates an infix arithmetic expression with a small
// recursive-descent parser. Grammar:
//
//	expr   = term (('+'|'-') term)*
//	term   = unary (('*'|'/'|'%') unary)*
//	unary  = '-' unary | primary
//	primary = number | '(' expr ')'
func evalExpression(s string) (float64, error) {
	p := &exprParser{input: s}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		case '%':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = math.Mod(v, rhs)
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	c := p.peek()

	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if start >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[start], start)
	}

	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}
