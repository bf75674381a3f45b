package courier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRecordsFillsLeadingIdle(t *testing.T) {
	c := testCourier(t, nil)
	o := testOrder(t, 1, 2, 4)
	require.NoError(t, c.Schedule.AddOrder(o, 5, 9, 4, nil))

	records := c.Schedule.ExportRecords()
	require.Len(t, records, 4)

	idle := records[0]
	assert.Equal(t, string(RecIdle), idle.Type)
	assert.Equal(t, 0.0, idle.StartTime)
	assert.Equal(t, 5.0, idle.EndTime)
	assert.Equal(t, c.InitPoint.String(), idle.From)
	assert.Equal(t, c.InitPoint.String(), idle.To)

	assert.Equal(t, string(RecMoveToPickup), records[1].Type)
	assert.Equal(t, string(RecMoveWithLoad), records[2].Type)
	assert.Equal(t, string(RecMoveToCharge), records[3].Type)
	assert.True(t, records[3].IsMoveToCharge)
}

func TestExportRecordsFillsInterItemGaps(t *testing.T) {
	c := testCourier(t, nil)
	require.NoError(t, c.Schedule.AddOrder(testOrder(t, 1, 2, 4), 5, 9, 4, nil))
	require.NoError(t, c.Schedule.AddOrder(testOrder(t, 2, 6, 8), 30, 34, 4, nil))
	count := c.Schedule.Len()

	records := c.Schedule.ExportRecords()

	// Leading idle plus one idle per timeline hole.
	var idles int
	for _, rec := range records {
		if rec.Type == string(RecIdle) {
			idles++
		}
	}
	assert.Equal(t, 2, idles, "leading idle and the dwell at base")
	assert.Equal(t, count, c.Schedule.Len(), "export must not mutate the schedule")

	// Consecutive records leave no uncovered time.
	for i := 1; i < len(records); i++ {
		assert.Equal(t, records[i-1].EndTime, records[i].StartTime)
	}
}

func TestExportRecordsCarriesTaskIdentity(t *testing.T) {
	c := testCourier(t, nil)
	o := testOrder(t, 7, 2, 4)
	require.NoError(t, c.Schedule.AddOrder(o, 5, 9, 4, nil))

	records := c.Schedule.ExportRecords()
	require.Len(t, records, 4)

	pickup := records[1]
	assert.Equal(t, c.Number, pickup.ResourceID)
	assert.Equal(t, c.Name, pickup.ResourceName)
	require.NotNil(t, pickup.TaskID)
	assert.Equal(t, 7, *pickup.TaskID)
	require.NotNil(t, pickup.TaskName)
	assert.Equal(t, "order-7", *pickup.TaskName)

	// Charging trips belong to no order.
	charge := records[3]
	assert.Nil(t, charge.TaskID)
	assert.Nil(t, charge.TaskName)
}

func TestExportRecordsEmptySchedule(t *testing.T) {
	c := testCourier(t, nil)
	assert.Nil(t, c.Schedule.ExportRecords())
}
