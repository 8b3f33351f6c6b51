package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type periodInput struct {
	Period string `validate:"required,period"`
	Label  string `validate:"omitempty,no_blank"`
}

func TestCustomValidators(t *testing.T) {
	cases := []struct {
		name  string
		input periodInput
		ok    bool
	}{
		{"tháng hợp lệ", periodInput{Period: "2026-02"}, true},
		{"ngày hợp lệ", periodInput{Period: "2026-02-10"}, true},
		{"năm hợp lệ", periodInput{Period: "2026"}, true},
		{"sai định dạng", periodInput{Period: "02/2026"}, false},
		{"label chỉ có khoảng trắng", periodInput{Period: "2026", Label: "   "}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.input)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
