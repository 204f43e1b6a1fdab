package forms

import "strings"

// DecorateErrors walks template render data and appends the "error"
// CSS class to the widget of every field that carries an error. It is
// registered as a template store decorator so it runs on every render,
// and it is idempotent: a widget whose class already contains "error"
// is left alone.
func DecorateErrors(data map[string]any) {
	for _, v := range data {
		form, ok := v.(*Form)
		if !ok {
			continue
		}
		for _, field := range form.Fields {
			if len(field.Errors) == 0 {
				continue
			}
			if field.Widget == nil {
				field.Widget = NewWidget("text")
			}
			cls := field.Widget.Attrs["class"]
			if hasClass(cls, "error") {
				continue
			}
			field.Widget.Attr("class", strings.TrimSpace(cls+" error"))
		}
	}
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}
