package tgui

// Keys of the structured callback payload: {"a": action, "v": value}.
const (
	KeyAction = "a"
	KeyValue  = "v"
)

// ActionData builds the structured callback payload used by Arrange and
// understood by the update parser.
func ActionData(action string, value any) map[string]any {
	return map[string]any{KeyAction: action, KeyValue: value}
}
