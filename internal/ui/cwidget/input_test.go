package cwidget

import (
	"errors"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestIntInput(t *testing.T) {
	test.NewTempApp(t)

	var got []int
	in := NewIntInput("Skip", "Enter integer", 3, 1, func(v int) error {
		if v > 100 {
			return errors.New("too large")
		}
		got = append(got, v)
		return nil
	})

	tests := []struct {
		text    string
		value   int
		wantErr bool
	}{
		{"5", 5, false},
		{"0", 5, true},
		{"abc", 5, true},
		{"500", 5, true},
		{"", 3, false},
	}

	for _, tc := range tests {
		in.SetText(tc.text)
		assert.Equal(t, tc.value, in.Value, "text %q", tc.text)
		assert.Equal(t, tc.wantErr, in.Error() != "", "text %q", tc.text)
	}

	assert.Equal(t, []int{5, 3}, got)
}
