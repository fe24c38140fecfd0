package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TagStatus represents whether a tracking tag is currently reporting.
type TagStatus string

const (
	StatusActive   TagStatus = "active"
	StatusInactive TagStatus = "inactive"
)

// ParseTagStatus maps a vendor status string onto the canonical enum.
// Anything other than "active" (case-insensitive) is inactive.
func ParseTagStatus(s string) TagStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusActive)) {
		return StatusActive
	}
	return StatusInactive
}

// StatusFromBool maps vendor activation flags onto the canonical enum.
func StatusFromBool(active bool) TagStatus {
	if active {
		return StatusActive
	}
	return StatusInactive
}

// TagRecord is the canonical device position every vendor adapter produces.
// Records are built once per lookup and never mutated afterwards.
type TagRecord struct {
	BatteryLevel   *int      `json:"batteryLevel"`
	CollectionTime int64     `json:"collectionTime"`
	Coordinate     string    `json:"coordinate"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Status         TagStatus `json:"status"`
}

// NewTagRecord builds a record from numeric coordinates, composing the
// "lon,lat" coordinate text from them.
func NewTagRecord(battery *int, collectionTime int64, longitude, latitude float64, status TagStatus) TagRecord {
	return TagRecord{
		BatteryLevel:   battery,
		CollectionTime: collectionTime,
		Coordinate:     FormatCoordinate(longitude, latitude),
		Latitude:       latitude,
		Longitude:      longitude,
		Status:         status,
	}
}

// NewTagRecordFromCoordinate builds a record from vendor coordinate text,
// deriving the float fields from it.
func NewTagRecordFromCoordinate(battery *int, collectionTime int64, coordinate string, status TagStatus) (TagRecord, error) {
	lon, lat, err := ParseCoordinate(coordinate)
	if err != nil {
		return TagRecord{}, err
	}
	return TagRecord{
		BatteryLevel:   battery,
		CollectionTime: collectionTime,
		Coordinate:     coordinate,
		Latitude:       lat,
		Longitude:      lon,
		Status:         status,
	}, nil
}

// Validate checks that the coordinate text decomposes to the stored pair.
// Battery levels are vendor-reported and passed through unchecked.
func (r TagRecord) Validate() error {
	lon, lat, err := ParseCoordinate(r.Coordinate)
	if err != nil {
		return err
	}
	if lon != r.Longitude || lat != r.Latitude {
		return fmt.Errorf("%w: coordinate %q does not match longitude=%v latitude=%v",
			ErrProtocol, r.Coordinate, r.Longitude, r.Latitude)
	}
	return nil
}

// ParseCoordinate splits "lon,lat" text into its numeric parts.
func ParseCoordinate(s string) (longitude, latitude float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed coordinate %q", ErrProtocol, s)
	}
	longitude, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed longitude in %q", ErrProtocol, s)
	}
	latitude, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed latitude in %q", ErrProtocol, s)
	}
	return longitude, latitude, nil
}

// FormatCoordinate renders the shortest "lon,lat" text that parses back to
// the same pair.
func FormatCoordinate(longitude, latitude float64) string {
	return strconv.FormatFloat(longitude, 'f', -1, 64) + "," + strconv.FormatFloat(latitude, 'f', -1, 64)
}

// PositionResponse is a TagRecord enriched with a map link at response time.
type PositionResponse struct {
	TagRecord
	MapLink string `json:"mapLink"`
}

// MapLink returns the Google Maps URL pointing at the given position.
func MapLink(latitude, longitude float64) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(longitude, 'f', -1, 64)
}

// ListedDevice is one entry of a vendor bulk listing. Latitude, Longitude
// and Coordinate are nil/empty when the vendor has no fix for the device.
type ListedDevice struct {
	DeviceID       string    `json:"deviceId"`
	BatteryLevel   *int      `json:"batteryLevel"`
	CollectionTime int64     `json:"collectionTime"`
	Coordinate     string    `json:"coordinate,omitempty"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Status         TagStatus `json:"status"`
}

// NewListedDevice lists a device with a known position.
func NewListedDevice(deviceID string, r TagRecord) ListedDevice {
	lat, lon := r.Latitude, r.Longitude
	return ListedDevice{
		DeviceID:       deviceID,
		BatteryLevel:   r.BatteryLevel,
		CollectionTime: r.CollectionTime,
		Coordinate:     r.Coordinate,
		Latitude:       &lat,
		Longitude:      &lon,
		Status:         r.Status,
	}
}

// HasPosition reports whether the vendor supplied a fix for the device.
func (d ListedDevice) HasPosition() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// Listing is the result of a best-effort bulk listing. Complete is false
// when pagination stopped early; Err then carries the page failure.
type Listing struct {
	Devices  []ListedDevice
	Complete bool
	Err      error
}
