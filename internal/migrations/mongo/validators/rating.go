package validators

import "go.mongodb.org/mongo-driver/bson"

func score() bson.M {
	return bson.M{
		"bsonType": []string{"int", "long"},
		"minimum":  1,
		"maximum":  5,
	}
}

var RatingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"user_id",
			"stars",
			"response_time",
			"driver_professionalism",
			"ambulance_condition",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"stars":                  score(),
			"response_time":          score(),
			"driver_professionalism": score(),
			"ambulance_condition":    score(),
			"comments": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},
		},
	},
}
