package cwidget

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText   string
	Placeholder string

	DefaultValue T
	Value        T

	OnChanged func(T) error

	Validator func(string) (T, error)
}

// NewIntInput builds a labelled integer field. Values below min are
// rejected; an empty entry falls back to the default. OnChanged may refuse
// a value by returning an error, which is shown under the entry.
func NewIntInput(label, placeholder string, defaultValue, min int, onChanged func(int) error) *Input[int] {
	input := &Input[int]{
		LabelText:    label,
		Placeholder:  placeholder,
		OnChanged:    onChanged,
		DefaultValue: defaultValue,
		Value:        defaultValue,
	}

	input.labelWidget = widget.NewLabel(fmt.Sprintf("%s: %d", label, input.DefaultValue))
	input.labelWidget.TextStyle = fyne.TextStyle{Bold: true}

	input.entryWidget = widget.NewEntry()
	input.entryWidget.SetPlaceHolder(placeholder)

	input.errorWidget = widget.NewLabel("")
	input.errorWidget.Hidden = true
	input.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	input.errorWidget.Importance = widget.DangerImportance

	input.Validator = func(s string) (int, error) {
		if s == "" {
			return input.DefaultValue, nil
		}

		res, err := strconv.Atoi(s)
		if err != nil {
			return input.DefaultValue, fmt.Errorf("%q is not an integer", s)
		}
		if res < min {
			return input.DefaultValue, fmt.Errorf("must be at least %d", min)
		}
		return res, nil
	}

	input.entryWidget.OnChanged = func(s string) {
		res, err := input.Validator(s)
		if err == nil && input.OnChanged != nil {
			err = input.OnChanged(res)
		}
		input.SetError(err)

		if err == nil {
			input.Value = res
			input.labelWidget.SetText(fmt.Sprintf("%s: %d", label, res))
		}
	}

	input.ExtendBaseWidget(input)

	return input
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)

	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
}

// Error returns the message currently shown, or "" when the value is valid.
func (item *Input[T]) Error() string {
	if item.errorWidget.Hidden {
		return ""
	}
	return item.errorWidget.Text
}

func (item *Input[T]) SetText(text string) {
	item.entryWidget.SetText(text)
}
