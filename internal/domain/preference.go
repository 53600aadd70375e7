package domain

import "time"

// Preference is a persisted client-side key/value setting for one device.
type Preference struct {
	DeviceID  string
	Key       string
	Value     string
	UpdatedAt time.Time
}
