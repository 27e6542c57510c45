package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// Record keys produced by the local evaluator. They match what the vision
// backends are prompted to return.
const (
	KeyExpr   = "expr"
	KeyResult = "result"
	KeyAssign = "assign"
)

var assignPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^=].*)$`)

var operatorReplacer = strings.NewReplacer(
	"×", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
	"²", "**2",
	"³", "**3",
)

// EvaluateLines evaluates recognized lines top to bottom.
//
// Each line becomes one item:
//   - "name = rhs" assigns; the record has assign=true and later lines can
//     use the variable
//   - "lhs = rhs" or "lhs =" evaluates lhs
//   - anything else is evaluated whole
//
// Lines that do not evaluate to a finite number or a boolean are returned as
// raw items so nothing the OCR read is lost.
func EvaluateLines(lines []string, vars map[string]any) []Item {
	env := Env(vars)
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, evaluateLine(line, env))
	}
	return items
}

// Env converts a dict_of_vars mapping into an evaluation environment.
// Numeric strings become float64 so they can take part in arithmetic.
func Env(vars map[string]any) map[string]any {
	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = coerceNumber(v)
	}
	return env
}

func coerceNumber(v any) any {
	switch n := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

func evaluateLine(line string, env map[string]any) Item {
	src := strings.TrimSpace(operatorReplacer.Replace(line))

	if m := assignPattern.FindStringSubmatch(src); m != nil {
		name, rhs := m[1], strings.TrimSpace(m[2])
		if v, err := Evaluate(rhs, env); err == nil {
			env[name] = v
			return Record(map[string]any{KeyExpr: name, KeyResult: v, KeyAssign: true})
		}
	}

	exprText := src
	if lhs, _, ok := strings.Cut(src, "="); ok {
		exprText = strings.TrimSpace(lhs)
	}
	if exprText == "" {
		return Raw(line)
	}

	v, err := Evaluate(exprText, env)
	if err != nil {
		return Raw(line)
	}
	return Record(map[string]any{KeyExpr: exprText, KeyResult: v, KeyAssign: false})
}

// Evaluate computes a single expression against env. Unknown identifiers are
// compile errors. The result must be a finite number or a boolean.
func Evaluate(code string, env map[string]any) (any, error) {
	program, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", code, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", code, err)
	}

	switch v := out.(type) {
	case int, int64, bool:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("evaluate %q: result is not finite", code)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("evaluate %q: unsupported result type %T", code, out)
	}
}
