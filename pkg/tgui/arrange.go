package tgui

// ArrangeWidth is the row width used by Arrange.
const ArrangeWidth = 5

// Pattern is one picker entry for Arrange.
type Pattern struct {
	Title string
	Value any
}

// Arrange lays items out left to right in rows of ArrangeWidth. Each item
// becomes a callback button carrying {"a": action, "v": item.Value}.
func Arrange(items []Pattern, action string) *InlineKeyboard {
	return ArrangeN(items, action, ArrangeWidth)
}

// ArrangeN is Arrange with a custom row width (width <= 0 uses ArrangeWidth).
func ArrangeN(items []Pattern, action string, width int) *InlineKeyboard {
	if width <= 0 {
		width = ArrangeWidth
	}
	k := &InlineKeyboard{rows: make([][]any, 0, (len(items)+width-1)/width)}
	for start := 0; start < len(items); start += width {
		end := min(start+width, len(items))
		row := make([]any, 0, end-start)
		for _, it := range items[start:end] {
			row = append(row, CallbackButton(it.Title, ActionData(action, it.Value)))
		}
		k.rows = append(k.rows, row)
	}
	return k
}
