package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateReviewPayloadRatingBounds(t *testing.T) {
	tests := []struct {
		name    string
		rating  int
		wantErr bool
	}{
		{"missing", 0, true},
		{"minimum", 1, false},
		{"maximum", 5, false},
		{"above maximum", 6, true},
		{"negative", -1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate.Struct(CreateReviewPayload{Rating: tc.rating})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateReviewPayloadCommentLength(t *testing.T) {
	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	comment := string(long)

	err := Validate.Struct(CreateReviewPayload{Rating: 3, Comment: &comment})
	assert.Error(t, err)
}
