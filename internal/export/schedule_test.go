package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"amenityhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type staticLister struct {
	list []*models.Reservation
	err  error
}

func (s staticLister) ListByResource(context.Context, string, models.Interval) ([]*models.Reservation, error) {
	return s.list, s.err
}

func TestScheduleExporterWrite(t *testing.T) {
	day := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	window := models.Interval{Start: day, End: day.Add(24 * time.Hour)}
	list := []*models.Reservation{
		{ID: "a", ResourceID: "R1", RequesterID: "alice", Status: models.StatusConfirmed,
			Interval: models.Interval{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}},
		{ID: "b", ResourceID: "R1", RequesterID: "bob", Status: models.StatusCancelled,
			Interval: models.Interval{Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour)}},
	}

	var buf bytes.Buffer
	exporter := NewScheduleExporter(staticLister{list: list})
	n, err := exporter.Write(context.Background(), &buf, &models.Resource{ID: "R1", Name: "Tennis court"}, window)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0][0], "Tennis court")
	assert.Equal(t, headers, rows[1])
	assert.Equal(t, []string{"01.03.2030", "09:00", "10:00", "alice", "confirmed", "a"}, rows[2])
	assert.Equal(t, "cancelled", rows[3][4])
}

func TestScheduleExporterListError(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewScheduleExporter(staticLister{err: errors.New("db is gone")})
	_, err := exporter.Write(context.Background(), &buf, &models.Resource{ID: "R1"}, models.Interval{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
