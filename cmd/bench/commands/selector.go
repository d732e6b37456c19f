package commands

import (
	"strings"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/zerr"
)

// parseSelectors compiles --select flags into a single conjunctive predicate.
// Each selector is one comparison:
//
//	key=value     key!=value
//	key<value     key<=value    key>value    key>=value
//	key in a,b,c
//
// Keys address the combined instance attributes, e.g. "workload",
// "device.kind" or "platform.version".
func parseSelectors(raw []string) (domain.Expr, error) {
	if len(raw) == 0 {
		return domain.All(), nil
	}

	exprs := make([]domain.Expr, 0, len(raw))
	for _, s := range raw {
		expr, err := parseSelector(s)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return domain.And{Exprs: exprs}, nil
}

// binary operators ordered so two-character forms match before their
// one-character prefixes.
var selectorOps = []struct {
	token string
	op    domain.CompareOp
}{
	{"!=", domain.OpNe},
	{"<=", domain.OpLe},
	{">=", domain.OpGe},
	{"=", domain.OpEq},
	{"<", domain.OpLt},
	{">", domain.OpGt},
}

func parseSelector(raw string) (domain.Expr, error) {
	if field, set, ok := strings.Cut(raw, " in "); ok {
		values := strings.Split(set, ",")
		anyValues := make([]any, 0, len(values))
		for _, v := range values {
			anyValues = append(anyValues, strings.TrimSpace(v))
		}
		return domain.Compare{
			Field:  strings.TrimSpace(field),
			Op:     domain.OpIn,
			Values: anyValues,
		}, nil
	}

	for _, candidate := range selectorOps {
		field, value, ok := strings.Cut(raw, candidate.token)
		if !ok {
			continue
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)
		if field == "" || value == "" {
			break
		}
		return domain.Compare{
			Field: field,
			Op:    candidate.op,
			Value: value,
		}, nil
	}

	return nil, zerr.With(zerr.New("invalid selector"), "selector", raw)
}
