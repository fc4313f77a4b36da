package runner

import (
	"fmt"
	"regexp"
	"strconv"
)

// countExprRegex matches a comparison expression for assertElementCount:
// an optional operator followed by a count, e.g. ">=2", "!=0", "3".
var countExprRegex = regexp.MustCompile(`^\s*(==|>=|<=|!=|>|<)?\s*(\d+)\s*$`)

// evalCountExpr checks an actual element count against a comparison
// expression. The operator defaults to == when only a number is given.
func evalCountExpr(expr string, actual int) (bool, string, error) {
	m := countExprRegex.FindStringSubmatch(expr)
	if m == nil {
		return false, "", fmt.Errorf("invalid count expression %q", expr)
	}

	op := m[1]
	if op == "" {
		op = "=="
	}
	expected, err := strconv.Atoi(m[2])
	if err != nil {
		return false, "", fmt.Errorf("invalid count expression %q: %w", expr, err)
	}

	var ok bool
	switch op {
	case "==":
		ok = actual == expected
	case "!=":
		ok = actual != expected
	case ">=":
		ok = actual >= expected
	case "<=":
		ok = actual <= expected
	case ">":
		ok = actual > expected
	case "<":
		ok = actual < expected
	}

	detail := fmt.Sprintf("expected count %s %d, got %d", op, expected, actual)
	return ok, detail, nil
}
