package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readBack(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheet}, f.GetSheetList())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestOccupancyWorkbook(t *testing.T) {
	pool := domain.SlotPool{SlotKey: domain.SlotKey{Centre: "C1", Sala: domain.SalaTwo, Shift: domain.ShiftMorning}, Capacity: 2}
	data, err := OccupancyWorkbook([]domain.PoolOccupancy{domain.NewOccupancy(pool, 2, 3)})
	require.NoError(t, err)

	rows := readBack(t, data, OccupancySheet)
	require.Len(t, rows, 2)
	assert.Equal(t, occupancyHeaders, rows[0])
	assert.Equal(t, []string{"C1", "2", "morning", "2", "2", "3", "0"}, rows[1])
}

func TestOccupancyWorkbook_Empty(t *testing.T) {
	data, err := OccupancyWorkbook(nil)
	require.NoError(t, err)
	rows := readBack(t, data, OccupancySheet)
	require.Len(t, rows, 1)
}

func TestTimelineWorkbook(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	events := []domain.CaseEvent{
		{Seq: 1, Kind: domain.EventDerivationCreated, Actor: "u1", At: at, DerivationID: "d1"},
		{Seq: 2, Kind: domain.EventSlotAssigned, Actor: "u1", At: at.Add(time.Minute), DerivationID: "d1", AdmissionID: "a1", FreeText: "C1:2:morning"},
	}
	data, err := TimelineWorkbook(events)
	require.NoError(t, err)

	rows := readBack(t, data, TimelineSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "DERIVATION_CREATED", rows[1][2])
	assert.Equal(t, "2025-03-04 10:30:00", rows[1][1])
	assert.Equal(t, "C1:2:morning", rows[2][8])
	assert.Equal(t, "a1", rows[2][7])
}
