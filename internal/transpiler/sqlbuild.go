package transpiler

import (
	"fmt"
	"strings"
)

// compileSelections turns every named selection block into a standalone SQL
// boolean fragment (spec §4.3 transpilation rules).
func compileSelections(selections map[string]interface{}) (map[string]string, error) {
	compiled := make(map[string]string, len(selections))
	for name, sel := range selections {
		fragment, err := compileSelection(sel)
		if err != nil {
			return nil, err
		}
		compiled[name] = fragment
	}
	return compiled, nil
}

func compileSelection(sel interface{}) (string, error) {
	switch v := sel.(type) {
	case map[string]interface{}:
		return compileFieldMap(v)
	case []interface{}:
		return compileKeywordList(v)
	default:
		return "", newError(ErrInvalidCondition, "selection must be a field map or a keyword list, got %T", sel)
	}
}

// compileKeywordList implements "simple selection of substring keywords
// becomes raw_event LIKE '%kw%' clauses" (spec §4.3), OR'd together.
func compileKeywordList(values []interface{}) (string, error) {
	var clauses []string
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return "", newError(ErrInvalidCondition, "keyword list entries must be strings")
		}
		clauses = append(clauses, fmt.Sprintf("raw_event LIKE '%%%s%%'", sqlEscape(s)))
	}
	return "(" + strings.Join(clauses, " OR ") + ")", nil
}

func compileFieldMap(fields map[string]interface{}) (string, error) {
	var clauses []string
	for fieldSpec, rawValue := range fields {
		field, modifier := splitFieldModifier(fieldSpec)
		clause, err := compileFieldClause(field, modifier, rawValue)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return "(" + strings.Join(clauses, " AND ") + ")", nil
}

func splitFieldModifier(spec string) (field, modifier string) {
	parts := strings.SplitN(spec, "|", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func compileFieldClause(field, modifier string, rawValue interface{}) (string, error) {
	values, err := toStringValues(rawValue)
	if err != nil {
		return "", err
	}

	var clauses []string
	for _, v := range values {
		clause, err := compileOneValue(field, modifier, v)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", nil
}

func compileOneValue(field, modifier, value string) (string, error) {
	escaped := sqlEscape(value)
	switch modifier {
	case "":
		return fmt.Sprintf("%s = '%s'", field, escaped), nil
	case "contains":
		return fmt.Sprintf("%s LIKE '%%%s%%'", field, escaped), nil
	case "startswith":
		return fmt.Sprintf("%s LIKE '%s%%'", field, escaped), nil
	case "endswith":
		return fmt.Sprintf("%s LIKE '%%%s'", field, escaped), nil
	case "re", "regex":
		return fmt.Sprintf("%s ~ '%s'", field, escaped), nil
	default:
		return "", newError(ErrUnknownModifier, "unrecognized field modifier %q", modifier)
	}
}

func toStringValues(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case int:
		return []string{fmt.Sprintf("%d", v)}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, newError(ErrInvalidCondition, "field value list entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, newError(ErrInvalidCondition, "unsupported field value type %T", raw)
	}
}

// compileCondition recursively renders the condition AST, substituting each
// selection reference with its compiled SQL fragment.
func compileCondition(node conditionNode, compiled map[string]string) (string, error) {
	switch v := node.(type) {
	case selectionRef:
		fragment, ok := compiled[v.name]
		if !ok {
			return "", newError(ErrInvalidCondition, "condition references undefined selection %q", v.name)
		}
		return fragment, nil
	case notNode:
		operand, err := compileCondition(v.operand, compiled)
		if err != nil {
			return "", err
		}
		return "NOT " + operand, nil
	case andNode:
		left, err := compileCondition(v.left, compiled)
		if err != nil {
			return "", err
		}
		right, err := compileCondition(v.right, compiled)
		if err != nil {
			return "", err
		}
		return "(" + left + " AND " + right + ")", nil
	case orNode:
		left, err := compileCondition(v.left, compiled)
		if err != nil {
			return "", err
		}
		right, err := compileCondition(v.right, compiled)
		if err != nil {
			return "", err
		}
		return "(" + left + " OR " + right + ")", nil
	default:
		return "", newError(ErrInvalidCondition, "unrecognized condition node %T", node)
	}
}

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
