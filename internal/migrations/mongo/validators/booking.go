package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_code",
			"type",
			"priority",
			"user_id",
			"status",
			"patient_name",
			"pickup_address",
			"destination_address",
			"total_amount",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_code": bson.M{
				"bsonType": "string",
				"pattern":  "^AMB[0-9]{8}[0-9]{3,}$",
			},

			"type": bson.M{
				"enum": []string{"emergency", "scheduled"},
			},

			"priority": bson.M{
				"enum": []string{"urgent", "high", "normal", "low"},
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"status": bson.M{
				"enum": []string{
					"pending",
					"confirmed",
					"dispatched",
					"in_progress",
					"completed",
					"cancelled",
					"payment_failed",
				},
			},

			"patient_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"distance_km": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"total_amount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"adjusted_price": bson.M{
				"bsonType": []string{"int", "long", "null"},
				"minimum":  0,
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
