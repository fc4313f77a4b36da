package runner

import "fmt"

// ActionKind is the closed set of supported step actions. Adding a kind
// means extending this enum and the executor's dispatch, which the
// compiler checks, rather than growing a stringly-typed branch.
type ActionKind int

const (
	ActionClick ActionKind = iota
	ActionHover
	ActionInput
	ActionSelect
	ActionWait
	ActionScroll
	ActionAssert
	ActionAssertTextContains
	ActionAssertElementCount
)

var actionNames = map[string]ActionKind{
	"click":              ActionClick,
	"hover":              ActionHover,
	"input":              ActionInput,
	"select":             ActionSelect,
	"wait":               ActionWait,
	"scroll":             ActionScroll,
	"assert":             ActionAssert,
	"assertTextContains": ActionAssertTextContains,
	"assertElementCount": ActionAssertElementCount,
}

// ParseAction maps a step's action identifier onto the enum. An
// unrecognized identifier is a hard per-test failure, not a skip.
func ParseAction(s string) (ActionKind, error) {
	kind, ok := actionNames[s]
	if !ok {
		return 0, fmt.Errorf("unsupported action %q", s)
	}
	return kind, nil
}

func (k ActionKind) String() string {
	for name, kind := range actionNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// interacts reports whether the action drives the page (and is
// therefore eligible for locator self-healing). Assertions measure,
// they do not interact.
func (k ActionKind) interacts() bool {
	switch k {
	case ActionClick, ActionInput, ActionSelect:
		return true
	}
	return false
}
