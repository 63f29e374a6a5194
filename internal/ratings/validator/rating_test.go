package validator

import (
	"strings"
	"testing"

	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRating() *model.Rating {
	return &model.Rating{
		BookingID:             "65f1c0ffee0000000000000a",
		Stars:                 5,
		ResponseTime:          4,
		DriverProfessionalism: 5,
		AmbulanceCondition:    3,
	}
}

func TestRatingValidator_Valid(t *testing.T) {
	v := NewRatingValidator(logger.Discard())
	assert.NoError(t, v.Validate(validRating()))
}

func TestRatingValidator_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *model.Rating)
		field   string
		message string
	}{
		{name: "stars above range", mutate: func(r *model.Rating) { r.Stars = 6 }, field: "Stars", message: "between 1 and 5"},
		{name: "missing sub-rating", mutate: func(r *model.Rating) { r.ResponseTime = 0 }, field: "ResponseTime", message: "between 1 and 5"},
		{name: "negative sub-rating", mutate: func(r *model.Rating) { r.AmbulanceCondition = -1 }, field: "AmbulanceCondition", message: "between 1 and 5"},
		{name: "bad booking id", mutate: func(r *model.Rating) { r.BookingID = "not-an-id" }, field: "BookingID", message: "ObjectID"},
		{name: "long comment", mutate: func(r *model.Rating) { r.Comments = strings.Repeat("a", 1001) }, field: "Comments", message: "at most 1000"},
	}

	v := NewRatingValidator(logger.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRating()
			tt.mutate(r)

			err := v.Validate(r)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Contains(t, verrs[0].Message, tt.message)
		})
	}
}
