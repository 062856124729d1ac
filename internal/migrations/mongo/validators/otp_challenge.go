package validators

import "go.mongodb.org/mongo-driver/bson"

var OTPChallengeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_id",
			"subject_ref",
			"purpose",
			"code_hash",
			"status",
			"attempts",
			"delivery_status",
			"issued_at",
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string", "minLength": 1},
			"booking_id":  bson.M{"bsonType": "string", "minLength": 1},
			"service_id":  bson.M{"bsonType": "string"},
			"subject_ref": bson.M{"bsonType": "string", "minLength": 1},

			"purpose": bson.M{
				"bsonType": "string",
				"enum":     []string{"consent", "service_completion"},
			},

			"code_hash": bson.M{"bsonType": "string", "minLength": 1},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "validated", "expired", "superseded"},
			},

			"attempts": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},

			"delivery_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"queued", "sent", "failed"},
			},

			"issued_at":     bson.M{"bsonType": "date"},
			"expires_at":    bson.M{"bsonType": "date"},
			"validated_at":  bson.M{"bsonType": "date"},
			"superseded_at": bson.M{"bsonType": "date"},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "owner", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1},
			"owner":      bson.M{"bsonType": "string", "minLength": 1},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
