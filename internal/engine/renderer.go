package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// placeholderPattern matches {{dotted.path}} placeholders. The variable
// picker only emits word characters and dots, so nothing else is accepted.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// ErrUnresolvedPath is returned in strict mode when a placeholder path
// cannot be fully resolved against the context.
type ErrUnresolvedPath struct {
	Path string
}

func (e *ErrUnresolvedPath) Error() string {
	return fmt.Sprintf("unresolved template path: %s", e.Path)
}

// Renderer resolves templates against a variable tree. The default policy
// is best effort: an unresolved path substitutes the empty string, so
// rendering never fails for a missing variable. Strict mode fails instead,
// for test suites that want to catch template/context mismatches.
type Renderer struct {
	Strict bool
}

// Render resolves a template. Text templates substitute placeholders in
// the content. Structured templates pass name and language through
// verbatim and substitute each ordered parameter, preserving order
// exactly; downstream positional indices are significant.
func (r Renderer) Render(tpl *domain.Template, vars map[string]any) (domain.RenderedPayload, error) {
	switch tpl.Kind {
	case domain.TemplateKindStructured:
		if tpl.StructuredRef == nil {
			return domain.RenderedPayload{}, fmt.Errorf("structured template %s has no reference", tpl.ID)
		}
		params := make([]string, 0, len(tpl.StructuredRef.OrderedParams))
		for _, p := range tpl.StructuredRef.OrderedParams {
			rendered, err := r.substitute(p, vars)
			if err != nil {
				return domain.RenderedPayload{}, err
			}
			params = append(params, rendered)
		}
		return domain.RenderedPayload{
			Kind:           domain.TemplateKindStructured,
			StructuredName: tpl.StructuredRef.Name,
			Language:       tpl.StructuredRef.Language,
			OrderedParams:  params,
		}, nil

	default:
		content, err := r.substitute(tpl.Content, vars)
		if err != nil {
			return domain.RenderedPayload{}, err
		}
		return domain.RenderedPayload{
			Kind:    domain.TemplateKindText,
			Content: content,
		}, nil
	}
}

// substitute replaces every placeholder in s with its resolved value.
func (r Renderer) substitute(s string, vars map[string]any) (string, error) {
	var unresolved string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := lookupPath(vars, path)
		if !ok {
			if unresolved == "" {
				unresolved = path
			}
			return ""
		}
		return value
	})

	if r.Strict && unresolved != "" {
		return "", &ErrUnresolvedPath{Path: unresolved}
	}
	return out, nil
}

// lookupPath walks the variable tree along a dot-separated path.
func lookupPath(vars map[string]any, path string) (string, bool) {
	var current any = vars
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[segment]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
