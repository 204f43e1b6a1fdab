package forms

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactForm() *Form {
	return New(
		NewField("name", "Name"),
		NewField("email", "Email").WithWidget(NewWidget("email").Attr("class", "wide")),
		NewField("message", "Message").WithWidget(NewWidget("textarea")),
	)
}

func TestFormBind(t *testing.T) {
	form := contactForm()
	form.Bind(url.Values{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
	})

	assert.Equal(t, "Ada", form.Field("name").Value)
	assert.Equal(t, "ada@example.com", form.Field("email").Value)
	assert.Empty(t, form.Field("message").Value)
}

func TestFormErrors(t *testing.T) {
	form := contactForm()
	assert.False(t, form.HasErrors())

	form.AddError("email", "must be a valid email address")
	form.AddError("ghost", "ignored")

	assert.True(t, form.HasErrors())
	require.Len(t, form.Field("email").Errors, 1)
}

func TestFieldHTML(t *testing.T) {
	tests := []struct {
		name  string
		field *Field
		want  string
	}{
		{
			name:  "text input",
			field: NewField("name", "Name"),
			want:  `<input type="text" name="name">`,
		},
		{
			name: "input with value and attrs",
			field: func() *Field {
				f := NewField("email", "Email").WithWidget(NewWidget("email").Attr("class", "wide"))
				f.Value = "a@b.c"
				return f
			}(),
			want: `<input type="email" name="email" class="wide" value="a@b.c">`,
		},
		{
			name: "textarea",
			field: func() *Field {
				f := NewField("message", "Message").WithWidget(NewWidget("textarea"))
				f.Value = "<hi>"
				return f
			}(),
			want: `<textarea name="message">&lt;hi&gt;</textarea>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.field.HTML()))
		})
	}
}

func TestDecorateErrors(t *testing.T) {
	form := contactForm()
	form.AddError("name", "required")
	form.AddError("email", "invalid")

	data := map[string]any{
		"Form":  form,
		"Other": "not a form",
	}

	DecorateErrors(data)

	assert.Equal(t, "error", form.Field("name").Widget.Attrs["class"])
	// Existing classes are kept, error appended.
	assert.Equal(t, "wide error", form.Field("email").Widget.Attrs["class"])
	// Clean fields stay untouched.
	assert.Empty(t, form.Field("message").Widget.Attrs["class"])
}

func TestDecorateErrorsIsIdempotent(t *testing.T) {
	form := contactForm()
	form.AddError("name", "required")

	data := map[string]any{"Form": form}
	DecorateErrors(data)
	DecorateErrors(data)

	assert.Equal(t, "error", form.Field("name").Widget.Attrs["class"])
}
