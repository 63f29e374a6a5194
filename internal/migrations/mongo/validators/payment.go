package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"transaction_id",
			"booking_id",
			"user_id",
			"gateway",
			"amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"transaction_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"gateway": bson.M{
				"enum": []string{"midtrans", "xendit", "gopay"},
			},

			"amount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"status": bson.M{
				"enum": []string{"pending", "paid", "failed"},
			},

			"paid_at": bson.M{
				"bsonType": []string{"date", "null"},
			},
		},
	},
}
