package ipc

import "strings"

// Action is the tagged terminal-action union dispatched at a tab: a named
// binding action, a vi motion, a vi/search/mouse mode action, a raw escape
// sequence, or a program to spawn.
type Action struct {
	Type     string   `json:"type"`
	Name     *string  `json:"name,omitempty"`
	Motion   *string  `json:"motion,omitempty"`
	Action   *string  `json:"action,omitempty"`
	Sequence *string  `json:"sequence,omitempty"`
	Program  *Program `json:"program,omitempty"`
}

const (
	ActionNamed    = "action"
	ActionViMotion = "vi_motion"
	ActionVi       = "vi_action"
	ActionSearch   = "search_action"
	ActionMouse    = "mouse_action"
	ActionEsc      = "esc"
	ActionCommand  = "command"
)

// Normalized action names. Clients may spell names in snake_case, kebab-case
// or CamelCase; normalization strips separators and lowercases before lookup.
var knownActions = nameSet(
	"Paste", "Copy", "PasteSelection", "ClearSelection",
	"IncreaseFontSize", "DecreaseFontSize", "ResetFontSize",
	"ScrollPageUp", "ScrollPageDown", "ScrollHalfPageUp", "ScrollHalfPageDown",
	"ScrollLineUp", "ScrollLineDown", "ScrollToTop", "ScrollToBottom",
	"ClearHistory", "ClearLogNotice", "Hide", "Minimize", "Quit",
	"ToggleFullscreen", "ToggleMaximized", "SpawnNewInstance", "CreateNewWindow",
	"CreateNewTab", "SelectNextTab", "SelectPreviousTab", "SelectLastTab",
	"ToggleViMode", "SearchForward", "SearchBackward", "ReceiveChar", "None",
)

var knownViActions = nameSet(
	"ToggleNormalSelection", "ToggleLineSelection", "ToggleBlockSelection",
	"ToggleSemanticSelection", "SearchNext", "SearchPrevious",
	"SearchStart", "SearchEnd", "Open", "CenterAroundViCursor",
	"InlineSearchForward", "InlineSearchBackward",
	"InlineSearchForwardShort", "InlineSearchBackwardShort",
	"InlineSearchNext", "InlineSearchPrevious",
)

var knownSearchActions = nameSet(
	"SearchFocusNext", "SearchFocusPrevious", "SearchConfirm", "SearchCancel",
	"SearchClear", "SearchDeleteWord", "SearchHistoryPrevious", "SearchHistoryNext",
)

var knownMouseActions = nameSet("ExpandSelection")

var knownViMotions = nameSet(
	"Up", "Down", "Left", "Right", "First", "Last", "FirstOccupied",
	"High", "Middle", "Low",
	"SemanticLeft", "SemanticRight", "SemanticLeftEnd", "SemanticRightEnd",
	"WordLeft", "WordRight", "WordLeftEnd", "WordRightEnd", "Bracket",
)

func nameSet(names ...string) map[string]string {
	set := make(map[string]string, len(names))
	for _, name := range names {
		set[normalizeActionName(name)] = name
	}
	return set
}

// normalizeActionName strips underscores and hyphens and lowercases, so
// "scroll_page_up", "scroll-page-up" and "ScrollPageUp" all match.
func normalizeActionName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		if ch == '_' || ch == '-' {
			continue
		}
		if 'A' <= ch && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Normalize validates the union exhaustively and canonicalizes name fields.
// Unknown names fail invalid_request before any state is touched.
func (a *Action) Normalize() (Action, *Error) {
	out := *a
	switch a.Type {
	case ActionNamed:
		name, err := lookupName(a.Name, knownActions, "action")
		if err != nil {
			return Action{}, err
		}
		out.Name = &name
	case ActionViMotion:
		motion, err := lookupName(a.Motion, knownViMotions, "vi motion")
		if err != nil {
			return Action{}, err
		}
		out.Motion = &motion
	case ActionVi:
		action, err := lookupName(a.Action, knownViActions, "vi action")
		if err != nil {
			return Action{}, err
		}
		out.Action = &action
	case ActionSearch:
		action, err := lookupName(a.Action, knownSearchActions, "search action")
		if err != nil {
			return Action{}, err
		}
		out.Action = &action
	case ActionMouse:
		action, err := lookupName(a.Action, knownMouseActions, "mouse action")
		if err != nil {
			return Action{}, err
		}
		out.Action = &action
	case ActionEsc:
		if a.Sequence == nil {
			return Action{}, NewError(CodeInvalidRequest, "esc action requires sequence")
		}
	case ActionCommand:
		if a.Program == nil || a.Program.Program == "" {
			return Action{}, NewError(CodeInvalidRequest, "command action requires program")
		}
	default:
		return Action{}, Errorf(CodeInvalidRequest, "unknown action type %q", a.Type)
	}
	return out, nil
}

func lookupName(name *string, known map[string]string, label string) (string, *Error) {
	if name == nil {
		return "", Errorf(CodeInvalidRequest, "missing %s name", label)
	}
	canonical, ok := known[normalizeActionName(*name)]
	if !ok {
		return "", Errorf(CodeInvalidRequest, "invalid %s %q", label, *name)
	}
	return canonical, nil
}
