package sim

import "strconv"

func roomPrefix(roomID int) string {
	return "rooms/" + strconv.Itoa(roomID)
}

// ReadingTopic is where readings of one sensor are published.
func ReadingTopic(roomID int, suffix string) string {
	return roomPrefix(roomID) + "/sensors" + suffix
}

// EmergencyTopic is where threshold breaches are published.
func EmergencyTopic(roomID int) string {
	return roomPrefix(roomID) + "/emergency"
}

// ActuatorTopic carries the on/off status of one alarm actuator.
func ActuatorTopic(roomID int, act Actuator) string {
	return roomPrefix(roomID) + "/" + act.String()
}

// ConfigTopic announces threshold configuration changes.
func ConfigTopic(roomID int) string {
	return roomPrefix(roomID) + "/notificacion_config"
}

// roomTopics lists the topics subscribed for a selected room.
func roomTopics(roomID int) []string {
	return []string{
		ActuatorTopic(roomID, Siren),
		ActuatorTopic(roomID, Horn),
		ConfigTopic(roomID),
	}
}
