package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"vitals-sim/internal/catalog"
)

type sensorDTO struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
	Topico string `json:"topico"`
}

func (d sensorDTO) toSensor() catalog.Sensor {
	return catalog.Sensor{ID: d.ID, Name: d.Nombre, TopicSuffix: d.Topico}
}

type thresholdDTO struct {
	ID                 int      `json:"id"`
	FechaActualizacion wireTime `json:"fecha_actualizacion"`
	MaxValor           float64  `json:"max_valor"`
	MinValor           float64  `json:"min_valor"`
	TopicoSensor       string   `json:"topico_sensor"`
}

type roomDTO struct {
	IDHabitacion     int            `json:"id_habitacion"`
	NombreHabitacion string         `json:"nombre_habitacion"`
	Ocupado          bool           `json:"ocupado"`
	ConfigSensores   []thresholdDTO `json:"config_sensores"`
}

func (d roomDTO) toRoom() catalog.Room {
	return catalog.Room{
		ID:         d.IDHabitacion,
		Name:       d.NombreHabitacion,
		Occupied:   d.Ocupado,
		Thresholds: toThresholds(d.ConfigSensores),
	}
}

func toThresholds(dtos []thresholdDTO) catalog.Thresholds {
	configs := make([]catalog.ThresholdConfig, 0, len(dtos))
	for _, d := range dtos {
		configs = append(configs, catalog.ThresholdConfig{
			SensorTopic: d.TopicoSensor,
			Min:         d.MinValor,
			Max:         d.MaxValor,
			UpdatedAt:   time.Time(d.FechaActualizacion),
		})
	}
	return catalog.NewThresholds(configs)
}

// wireTime accepts RFC 3339 timestamps, SQL-style datetimes, bare dates and null.
type wireTime time.Time

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = wireTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("fecha_actualizacion: %w", err)
	}
	if s == "" {
		*t = wireTime{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("fecha_actualizacion: unrecognized time %q", s)
}
