package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookbakeapp/bookbake/internal/errors"
	"github.com/bookbakeapp/bookbake/internal/validation"
)

type testDocument struct {
	Title string      `json:"title" validate:"required"`
	Spine []testSpine `json:"spine" validate:"required,min=1,dive"`
}

type testSpine struct {
	Duration float64 `json:"duration" validate:"gte=0"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	doc := testDocument{
		Title: "A Book",
		Spine: []testSpine{{Duration: 1800}},
	}

	assert.NoError(t, v.Validate(doc))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		doc        testDocument
		wantErrMsg string
	}{
		{
			name: "missing required field",
			doc: testDocument{
				Spine: []testSpine{{Duration: 1}},
			},
			wantErrMsg: "title",
		},
		{
			name: "empty spine",
			doc: testDocument{
				Title: "A Book",
				Spine: []testSpine{},
			},
			wantErrMsg: "spine",
		},
		{
			name: "negative duration",
			doc: testDocument{
				Title: "A Book",
				Spine: []testSpine{{Duration: -5}},
			},
			wantErrMsg: "duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.doc)
			assert.Error(t, err)

			var domainErr *errors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, errors.CodeValidation, domainErr.Code)
				details, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok) {
					assert.Contains(t, details, tt.wantErrMsg)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(testDocument{Spine: []testSpine{{Duration: 1}}})
	assert.Error(t, err)

	var domainErr *errors.Error
	assert.True(t, errors.As(err, &domainErr))

	// Details must use the JSON tag name "title", not the field name.
	details, ok := domainErr.Details.(map[string]string)
	if assert.True(t, ok) {
		_, hasJSONName := details["title"]
		_, hasGoName := details["Title"]
		assert.True(t, hasJSONName)
		assert.False(t, hasGoName)
	}
}
