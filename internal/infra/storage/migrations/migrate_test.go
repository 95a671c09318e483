package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_HasSlotUniqueness(t *testing.T) {
	schema := Schema()

	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_key")
	assert.Contains(t, schema, "ON appointments (doctor_id, appointment_date, start_time)")
	assert.Contains(t, schema, "WHERE status <> 'cancelled'")
}
