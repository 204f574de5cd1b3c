package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"vitals-sim/internal/catalog"
)

func testCatalog() ([]catalog.Sensor, []catalog.Room) {
	sensors := []catalog.Sensor{{ID: 1, Name: "Frecuencia Cardiaca", TopicSuffix: "/hr"}}
	rooms := []catalog.Room{
		{ID: 2, Name: "UCI 2", Occupied: true, Thresholds: catalog.NewThresholds([]catalog.ThresholdConfig{
			{SensorTopic: "/hr", Min: 60, Max: 100},
		})},
		{ID: 5, Name: "UCI 5", Occupied: true},
	}
	return sensors, rooms
}

func TestPrintRooms(t *testing.T) {
	sensors, rooms := testCatalog()
	var buf bytes.Buffer
	printRooms(&buf, sensors, rooms)
	out := buf.String()
	require.Contains(t, out, "Frecuencia Cardiaca")
	require.Contains(t, out, "/hr [60, 100]")
	require.Contains(t, out, "UCI 5")
	require.Contains(t, out, "no thresholds")
}

func TestPrintRoomsJSON(t *testing.T) {
	sensors, rooms := testCatalog()
	var buf bytes.Buffer
	require.NoError(t, printRoomsJSON(&buf, sensors, rooms))

	var got struct {
		Sensors []catalog.Sensor `json:"sensors"`
		Rooms   []roomListing    `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Rooms, 2)
	require.Len(t, got.Rooms[0].Thresholds, 1)
	require.Empty(t, got.Rooms[1].Thresholds)
	require.Equal(t, "/hr", got.Sensors[0].TopicSuffix)
}
