package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/simon020286/go-manifest/models"
)

// ValueSpec represents a value that can be static or dynamic
type ValueSpec interface {
	IsStatic() bool
	GetStaticValue() (any, bool)
	GetDynamicExpression() (DynamicValue, bool)
	// Resolve resolves the value against the given scope
	Resolve(scope map[string]any) (any, error)
}

// StaticValue represents a literal value (number, string, bool, etc.)
type StaticValue struct {
	Value any
}

func NewStaticValue(value any) StaticValue {
	return StaticValue{
		Value: value,
	}
}

func (s StaticValue) IsStatic() bool {
	return true
}

func (s StaticValue) GetStaticValue() (any, bool) {
	return s.Value, true
}

func (s StaticValue) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (s StaticValue) Resolve(scope map[string]any) (any, error) {
	return s.Value, nil
}

// DynamicValue represents an expression to be evaluated at runtime
type DynamicValue struct {
	Language   string // "js" is the only supported language
	Expression string
}

func (d DynamicValue) IsStatic() bool {
	return false
}

func (d DynamicValue) GetStaticValue() (any, bool) {
	return nil, false
}

func (d DynamicValue) GetDynamicExpression() (DynamicValue, bool) {
	return d, true
}

func (d DynamicValue) Resolve(scope map[string]any) (any, error) {
	switch d.Language {
	case "js", "javascript", "":
		return d.resolveJS(scope)
	default:
		return nil, fmt.Errorf("unsupported language: %s", d.Language)
	}
}

// resolveJS evaluates a JavaScript expression using Goja.
// Every scope entry becomes a global; the whole scope is also exposed as $vars.
func (d DynamicValue) resolveJS(scope map[string]any) (any, error) {
	runtime := goja.New()

	for name, value := range scope {
		if err := runtime.Set(name, value); err != nil {
			return nil, fmt.Errorf("failed to set '%s': %w", name, err)
		}
	}
	if scope != nil {
		if err := runtime.Set("$vars", scope); err != nil {
			return nil, fmt.Errorf("failed to set scope variables: %w", err)
		}
	}

	wrappedCode := "(function() {\n return " + d.Expression + "\n})()"

	result, err := runtime.RunString(wrappedCode)
	if err != nil {
		return nil, fmt.Errorf("failed to execute JS expression '%s': %w", d.Expression, err)
	}

	return result.Export(), nil
}

// VariableReference refers to a scope entry ($var:name)
type VariableReference struct {
	Name string
}

func (v VariableReference) IsStatic() bool {
	return false
}

func (v VariableReference) GetStaticValue() (any, bool) {
	return nil, false
}

func (v VariableReference) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (v VariableReference) Resolve(scope map[string]any) (any, error) {
	value, exists := scope[v.Name]
	if !exists {
		return nil, fmt.Errorf("variable '%s' not found in scope", v.Name)
	}
	return value, nil
}

// EnvReference represents a reference to an environment variable ($env:NAME)
type EnvReference struct {
	Name string
}

func (e EnvReference) IsStatic() bool {
	return false
}

func (e EnvReference) GetStaticValue() (any, bool) {
	return nil, false
}

func (e EnvReference) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (e EnvReference) Resolve(scope map[string]any) (any, error) {
	value := os.Getenv(e.Name)
	if value == "" {
		return nil, fmt.Errorf("environment variable '%s' is not set or is empty", e.Name)
	}

	return value, nil
}

// ParseValue converts a raw configuration value to a ValueSpec.
// Strings prefixed with "$js:", "$env:" or "$var:" become dynamic values.
func ParseValue(v any) ValueSpec {
	str, ok := v.(string)
	if !ok {
		return StaticValue{Value: v}
	}

	switch {
	case strings.HasPrefix(str, "$js:"):
		return DynamicValue{
			Language:   "js",
			Expression: strings.TrimSpace(strings.TrimPrefix(str, "$js:")),
		}
	case strings.HasPrefix(str, "$env:"):
		return EnvReference{Name: strings.TrimSpace(strings.TrimPrefix(str, "$env:"))}
	case strings.HasPrefix(str, "$var:"):
		return VariableReference{Name: strings.TrimSpace(strings.TrimPrefix(str, "$var:"))}
	}

	return StaticValue{Value: v}
}

// ResolveString resolves spec and requires the result to be a string.
// Only a nil or static spec may yield no value; an expression or reference
// that produces null or undefined is an error.
func ResolveString(key string, spec ValueSpec, scope map[string]any) (string, error) {
	if spec == nil {
		return "", nil
	}
	value, err := spec.Resolve(scope)
	if err != nil {
		return "", models.ErrResolve(key, err)
	}
	switch v := value.(type) {
	case nil:
		if spec.IsStatic() {
			return "", nil
		}
		return "", models.ErrResolve(key, "expression produced no value")
	case string:
		return v, nil
	default:
		return "", models.ErrResolve(key, fmt.Sprintf("expected string, got %T", value))
	}
}
