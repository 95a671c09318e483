package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

func TestDecodeBreaks(t *testing.T) {
	breaks, err := decodeBreaks([]byte(`[{"start":"12:00","end":"13:00"},{"start":"15:00","end":"15:15"}]`))
	require.NoError(t, err)
	assert.Equal(t, []domain.BreakInterval{
		{Start: "12:00", End: "13:00"},
		{Start: "15:00", End: "15:15"},
	}, breaks)

	empty, err := decodeBreaks(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeBreaks([]byte(`{`))
	assert.Error(t, err)
}
