package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteEmployees(t *testing.T) {
	var buf bytes.Buffer
	rows := []EmployeeRow{
		{
			LastName:       "Lovelace",
			FirstName:      "Ada",
			Position:       "backend",
			Gender:         "female",
			DeskNumber:     "A1",
			HireDate:       time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
			ExperienceDays: 42,
			Skills:         "Go (4)",
		},
		{LastName: "Hopper", FirstName: "Grace", Position: "manager", Gender: "female"},
	}

	require.NoError(t, WriteEmployees(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{EmployeeSheet}, f.GetSheetList())

	sheet, err := f.GetRows(EmployeeSheet)
	require.NoError(t, err)
	require.Len(t, sheet, 3)
	assert.Equal(t, EmployeeHeader, sheet[0])
	assert.Equal(t, []string{"Lovelace", "Ada", "backend", "female", "A1", "2020-05-01", "42", "Go (4)"}, sheet[1])
	assert.Equal(t, "Hopper", sheet[2][0])
}

func TestWriteEmployees_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEmployees(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet, err := f.GetRows(EmployeeSheet)
	require.NoError(t, err)
	assert.Len(t, sheet, 1)
}
