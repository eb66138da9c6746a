package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "10 digit US", in: "5551234567", want: "+15551234567"},
		{name: "10 digit formatted", in: "(555) 123-4567", want: "+15551234567"},
		{name: "dotted", in: "555.123.4567", want: "+15551234567"},
		{name: "11 digit leading 1", in: "15551234567", want: "+15551234567"},
		{name: "11 digit formatted", in: "1 (555) 123-4567", want: "+15551234567"},
		{name: "already E.164", in: "+15551234567", want: "+15551234567"},
		{name: "international", in: "+44 20 7946 0958", want: "+442079460958"},
		{name: "plus with 7 digits", in: "+1234567", want: "+1234567"},
		{name: "plus with 15 digits", in: "+123456789012345", want: "+123456789012345"},
		{name: "surrounding whitespace", in: "  5551234567 ", want: "+15551234567"},

		{name: "empty", in: "", wantErr: ErrEmpty},
		{name: "blank", in: "   ", wantErr: ErrEmpty},
		{name: "plus with 6 digits", in: "+123456", wantErr: ErrInvalidLength},
		{name: "plus with 16 digits", in: "+1234567890123456", wantErr: ErrInvalidLength},
		{name: "plus only", in: "+", wantErr: ErrInvalidLength},
		{name: "letters", in: "555-CALL-NOW", wantErr: ErrInvalidFormat},
		{name: "plus with letters", in: "+1555abc4567", wantErr: ErrInvalidFormat},
		{name: "11 digits without leading 1", in: "25551234567", wantErr: ErrInvalidLength},
		{name: "9 digits", in: "555123456", wantErr: ErrInvalidLength},
		{name: "12 digits no plus", in: "155512345678", wantErr: ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsValid(tt.in))
		})
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "(555) 123-4567", Display("+15551234567"))
	assert.Equal(t, "+442079460958", Display("+442079460958"))
	assert.Equal(t, "garbage", Display("garbage"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********4567", Mask("+15551234567"))
	assert.Equal(t, "123", Mask("123"))
}
