package mongo

import (
	"testing"

	"medibook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func findIndex(t *testing.T, models []mongo.IndexModel, name string) mongo.IndexModel {
	t.Helper()
	for _, m := range models {
		if m.Options != nil && m.Options.Name != nil && *m.Options.Name == name {
			return m
		}
	}
	t.Fatalf("index %s not defined", name)
	return mongo.IndexModel{}
}

func TestCollections(t *testing.T) {
	names := map[string]bool{}
	for _, c := range Collections() {
		names[c.Name] = true
		require.NotNil(t, c.Validator, c.Name)
		assert.Contains(t, c.Validator, "$jsonSchema", c.Name)
		assert.NotEmpty(t, c.Indexes, c.Name)
	}
	assert.Equal(t, map[string]bool{"Bookings": true, "OTP_challenges": true, "Booking_locks": true}, names)
}

func TestOnePendingChallengePerSubject(t *testing.T) {
	idx := findIndex(t, OTPChallengesIndexes, "uniq_pending_subject_purpose")

	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
	assert.Equal(t, bson.D{{Key: "subject_ref", Value: 1}, {Key: "purpose", Value: 1}}, idx.Keys)
	assert.Equal(t, bson.M{"status": model.ChallengePending}, idx.Options.PartialFilterExpression)
}

func TestBookingNumberUnique(t *testing.T) {
	idx := findIndex(t, BookingsIndexes, "uniq_booking_number")
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
}

func TestLockRowsExpire(t *testing.T) {
	idx := findIndex(t, BookingLocksIndexes, "ttl_expires_at")
	require.NotNil(t, idx.Options.ExpireAfterSeconds)
	assert.Zero(t, *idx.Options.ExpireAfterSeconds)
}
