package brgps

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/fasttag/tag-position-api/internal/core/domain"
)

type device struct {
	IMEI      string   `json:"imei"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Battery   *int     `json:"battery"`
	IsActived bool     `json:"isActived"`
	Timestamp *int64   `json:"timestamp"`
}

func (d device) usable() bool {
	return d.Lat != nil && d.Lng != nil
}

func (d device) collectedAt(now func() time.Time) int64 {
	if d.Timestamp != nil {
		return *d.Timestamp
	}
	return now().Unix()
}

// toRecord maps a usable device. Coordinate text is "lng,lat".
func (d device) toRecord(now func() time.Time) domain.TagRecord {
	return domain.NewTagRecord(d.Battery, d.collectedAt(now), *d.Lng, *d.Lat, domain.StatusFromBool(d.IsActived))
}

// toListed maps any device, positioned or not, to a listing entry.
func (d device) toListed(now func() time.Time) domain.ListedDevice {
	if d.usable() {
		return domain.NewListedDevice(d.IMEI, d.toRecord(now))
	}
	return domain.ListedDevice{
		DeviceID:       d.IMEI,
		BatteryLevel:   d.Battery,
		CollectionTime: d.collectedAt(now),
		Status:         domain.StatusFromBool(d.IsActived),
	}
}

var errUnexpectedShape = errors.New("unexpected payload shape")

// decodeDevices accepts the three reply shapes the vendor produces:
//
//	[ {...}, ... ]               bare array
//	{"data": [ {...}, ... ]}     data envelope
//	{"all": ..., ...}            "all" flag: an array of devices, or the
//	                             object itself is the device
func decodeDevices(body []byte) ([]device, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errUnexpectedShape
	}

	switch trimmed[0] {
	case '[':
		return decodeList(trimmed)
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if raw, ok := envelope["data"]; ok {
			return decodeList(raw)
		}
		if raw, ok := envelope["all"]; ok {
			if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '[' {
				return decodeList(t)
			}
			var d device
			if err := json.Unmarshal(trimmed, &d); err != nil {
				return nil, err
			}
			return []device{d}, nil
		}
		return nil, errUnexpectedShape
	default:
		return nil, errUnexpectedShape
	}
}

// decodeList decodes an array of devices; a single object or null is also
// accepted.
func decodeList(raw json.RawMessage) ([]device, error) {
	t := bytes.TrimSpace(raw)
	switch {
	case len(t) == 0 || bytes.Equal(t, []byte("null")):
		return nil, nil
	case t[0] == '{':
		var d device
		if err := json.Unmarshal(t, &d); err != nil {
			return nil, err
		}
		return []device{d}, nil
	}

	var list []device
	if err := json.Unmarshal(t, &list); err != nil {
		return nil, err
	}
	return list, nil
}
