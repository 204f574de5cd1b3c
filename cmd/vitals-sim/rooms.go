package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"vitals-sim/internal/backend"
	"vitals-sim/internal/catalog"
)

var roomsJSON bool

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the sensor catalog and occupied rooms",
	Long:  "rooms fetches the sensor catalog and the occupied rooms with their thresholds from the backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		client := backend.New(backend.Options{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout,
			Retries: cfg.API.Retries,
		}, logger)
		sensors, err := client.FetchSensorCatalog(cmd.Context())
		if err != nil {
			return err
		}
		rooms, err := client.FetchOccupiedRooms(cmd.Context())
		if err != nil {
			return err
		}
		if roomsJSON {
			return printRoomsJSON(os.Stdout, sensors, rooms)
		}
		printRooms(os.Stdout, sensors, rooms)
		return nil
	},
}

func init() {
	roomsCmd.Flags().BoolVar(&roomsJSON, "json", false, "Print JSON instead of a listing")
}

func printRooms(w io.Writer, sensors []catalog.Sensor, rooms []catalog.Room) {
	fmt.Fprintln(w, headerStyle.Render("Sensors"))
	for _, s := range sensors {
		fmt.Fprintf(w, "  %3d  %-30s %s\n", s.ID, s.Name, mutedStyle.Render(s.TopicSuffix))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Occupied rooms"))
	for _, r := range rooms {
		fmt.Fprintf(w, "  %3d  %s\n", r.ID, r.Name)
		configs := r.Thresholds.Configs()
		if len(configs) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("       no thresholds"))
			continue
		}
		parts := make([]string, 0, len(configs))
		for _, c := range configs {
			parts = append(parts, fmt.Sprintf("%s [%g, %g]", c.SensorTopic, c.Min, c.Max))
		}
		fmt.Fprintln(w, "       "+strings.Join(parts, "  "))
	}
}

type roomListing struct {
	ID         int                       `json:"id"`
	Name       string                    `json:"name"`
	Occupied   bool                      `json:"occupied"`
	Thresholds []catalog.ThresholdConfig `json:"thresholds"`
}

func printRoomsJSON(w io.Writer, sensors []catalog.Sensor, rooms []catalog.Room) error {
	out := struct {
		Sensors []catalog.Sensor `json:"sensors"`
		Rooms   []roomListing    `json:"rooms"`
	}{Sensors: sensors, Rooms: make([]roomListing, 0, len(rooms))}
	for _, r := range rooms {
		out.Rooms = append(out.Rooms, roomListing{ID: r.ID, Name: r.Name, Occupied: r.Occupied, Thresholds: r.Thresholds.Configs()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
