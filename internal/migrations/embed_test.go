package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_create_catalog.sql",
		"00002_create_bookings.sql",
		"00003_create_booking_audit_logs.sql",
	}, files)

	bookings, err := fs.ReadFile(FS, "00002_create_bookings.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(bookings), "uq_bookings_active_seat"))
	assert.True(t, strings.Contains(string(bookings), "-- +goose Down"))
}
