package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingServiceSchema = bson.M{
	"bsonType": "object",
	"required": []string{
		"id",
		"booking_id",
		"service_ref",
		"scheduled_date",
		"status",
		"tariff",
		"facility_share",
		"vendor_share",
	},
	"properties": bson.M{
		"id":             bson.M{"bsonType": "string", "minLength": 1},
		"booking_id":     bson.M{"bsonType": "string", "minLength": 1},
		"service_ref":    bson.M{"bsonType": "string", "minLength": 1},
		"scheduled_date": bson.M{"bsonType": "date"},
		"status": bson.M{
			"bsonType": "string",
			"enum":     []string{"not_started", "in_progress", "completed", "cancelled"},
		},
		"tariff":         bson.M{"bsonType": []string{"double", "int", "long", "decimal"}, "minimum": 0},
		"facility_share": bson.M{"bsonType": []string{"double", "int", "long", "decimal"}, "minimum": 0},
		"vendor_share":   bson.M{"bsonType": []string{"double", "int", "long", "decimal"}, "minimum": 0},
		"completed_at":   bson.M{"bsonType": "date"},
	},
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_number",
			"patient_ref",
			"facility_ref",
			"payment_mode",
			"booking_status",
			"approval_status",
			"services",
			"cursor",
			"created_at",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},

			"booking_number": bson.M{
				"bsonType": "string",
				"pattern":  "^BK-[0-9]{8}-[A-Z0-9]{6}$",
			},

			"patient_ref":  bson.M{"bsonType": "string", "minLength": 1},
			"facility_ref": bson.M{"bsonType": "string", "minLength": 1},

			"payment_mode": bson.M{
				"bsonType": "string",
				"enum":     []string{"cash", "insurance", "sha", "other"},
			},

			"booking_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending_otp", "active", "completed", "cancelled"},
			},

			"approval_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "approved", "rejected"},
			},

			"services": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items":    bookingServiceSchema,
			},

			"cursor": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  -1,
			},

			"created_at":          bson.M{"bsonType": "date"},
			"updated_at":          bson.M{"bsonType": "date"},
			"consent_verified_at": bson.M{"bsonType": "date"},
			"completed_at":        bson.M{"bsonType": "date"},
			"cancelled_at":        bson.M{"bsonType": "date"},
			"version":             bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}
