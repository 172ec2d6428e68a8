package metadata

import (
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheTTL = 30 * time.Second

// SimpleEvaluator parses and runs the minimal filter grammar spec
// scenarios exercise:
//
//	FILTER <table> WHERE <column><op><literal> [AND <column><op><literal>]...
//
// supporting the "=", "<>" and "LIKE" comparisons. FILTER and WHERE match
// in any case; AND and LIKE match only in all-upper or all-lower case;
// column names match case-insensitively. Results are cached by expression string so
// repeated identical subscribes within the TTL skip re-evaluation.
type SimpleEvaluator struct {
	dataset Dataset
	cache   *expirable.LRU[string, []Row]
}

// NewSimpleEvaluator wraps a dataset with filter parsing and a
// short-lived result cache.
func NewSimpleEvaluator(dataset Dataset) *SimpleEvaluator {
	return &SimpleEvaluator{
		dataset: dataset,
		cache:   expirable.NewLRU[string, []Row](256, nil, defaultCacheTTL),
	}
}

type comparison struct {
	column string
	op     string
	value  string
}

// Dataset returns the backing catalog this evaluator filters against.
func (e *SimpleEvaluator) Dataset() Dataset {
	return e.dataset
}

// Evaluate parses filterExpression and returns the dataset rows it
// selects. An empty or whitespace-only expression selects no rows: it
// resolves the same way an empty filter expression resolves against
// Empty::Guid upstream, matching nothing rather than everything.
func (e *SimpleEvaluator) Evaluate(filterExpression string) ([]Row, error) {
	trimmed := strings.TrimSpace(filterExpression)
	if trimmed == "" {
		return nil, nil
	}

	if rows, ok := e.cache.Get(trimmed); ok {
		return rows, nil
	}

	comparisons, err := parseFilter(trimmed)
	if err != nil {
		return nil, err
	}

	var matched []Row
	for _, row := range e.dataset.Rows() {
		if rowMatches(row, comparisons) {
			matched = append(matched, row)
		}
	}

	e.cache.Add(trimmed, matched)
	return matched, nil
}

func parseFilter(expression string) ([]comparison, error) {
	fields := strings.Fields(expression)
	if len(fields) < 4 || !strings.EqualFold(fields[0], "FILTER") {
		return nil, &ParseError{Expression: expression, Reason: "expected FILTER <table> WHERE <predicate>"}
	}

	whereIdx := -1
	for i, f := range fields {
		if strings.EqualFold(f, "WHERE") {
			whereIdx = i
			break
		}
	}
	if whereIdx < 0 || whereIdx == len(fields)-1 {
		return nil, &ParseError{Expression: expression, Reason: "missing WHERE clause"}
	}

	predicate := strings.Join(fields[whereIdx+1:], " ")
	clauses := splitAND(predicate)

	comparisons := make([]comparison, 0, len(clauses))
	for _, clause := range clauses {
		cmp, err := parseComparison(strings.TrimSpace(clause))
		if err != nil {
			return nil, &ParseError{Expression: expression, Reason: err.Error()}
		}
		comparisons = append(comparisons, cmp)
	}
	return comparisons, nil
}

func splitAND(predicate string) []string {
	var clauses []string
	for _, part := range strings.Split(predicate, " AND ") {
		for _, sub := range strings.Split(part, " and ") {
			clauses = append(clauses, sub)
		}
	}
	return clauses
}

func parseComparison(clause string) (comparison, error) {
	for _, op := range []string{"<>", "=", "LIKE", "like"} {
		if idx := strings.Index(clause, op); idx > 0 {
			column := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+len(op):])
			value = strings.Trim(value, "'\"")
			return comparison{column: column, op: strings.ToUpper(op), value: value}, nil
		}
	}
	return comparison{}, errors.New("unrecognized comparison: " + clause)
}

func rowMatches(row Row, comparisons []comparison) bool {
	for _, cmp := range comparisons {
		value, ok := row.Field(cmp.column)
		if !ok {
			return false
		}
		switch cmp.op {
		case "=":
			if !strings.EqualFold(value, cmp.value) {
				return false
			}
		case "<>":
			if strings.EqualFold(value, cmp.value) {
				return false
			}
		case "LIKE":
			if !likeMatch(value, cmp.value) {
				return false
			}
		}
	}
	return true
}

// likeMatch supports the SQL "%" wildcard at either end of the pattern,
// the only form the distilled grammar needs.
func likeMatch(value, pattern string) bool {
	hasPrefix := strings.HasPrefix(pattern, "%")
	hasSuffix := strings.HasSuffix(pattern, "%")
	core := strings.Trim(pattern, "%")

	switch {
	case hasPrefix && hasSuffix:
		return strings.Contains(strings.ToUpper(value), strings.ToUpper(core))
	case hasSuffix:
		return strings.HasPrefix(strings.ToUpper(value), strings.ToUpper(core))
	case hasPrefix:
		return strings.HasSuffix(strings.ToUpper(value), strings.ToUpper(core))
	default:
		return strings.EqualFold(value, pattern)
	}
}
