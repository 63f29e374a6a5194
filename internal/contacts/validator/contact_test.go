package validator

import (
	"testing"

	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactValidator(t *testing.T) {
	valid := func() *model.EmergencyContact {
		return &model.EmergencyContact{
			UserID:       "user-1",
			Name:         "Budi Santoso",
			Relationship: "sibling",
			Phone:        "+6281234567890",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *model.EmergencyContact)
		field   string
		message string
	}{
		{name: "valid", mutate: func(*model.EmergencyContact) {}},
		{name: "missing name", mutate: func(c *model.EmergencyContact) { c.Name = "" }, field: "Name", message: "is required"},
		{name: "short relationship", mutate: func(c *model.EmergencyContact) { c.Relationship = "x" }, field: "Relationship", message: "at least 2"},
		{name: "local phone", mutate: func(c *model.EmergencyContact) { c.Phone = "081234567890" }, field: "Phone", message: "valid phone number"},
		{name: "bad id", mutate: func(c *model.EmergencyContact) { c.ID = "123" }, field: "ID", message: "valid ID"},
	}

	v := NewContactValidator(logger.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := v.Validate(c)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
			assert.Contains(t, verrs[0].Message, tt.message)
		})
	}
}
