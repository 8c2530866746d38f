package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Display defaults for fields a record does not carry.
const (
	DefaultText    = "N/A"
	DefaultQuality = "Unknown"
	DefaultNone    = "None"
)

// VideoQuality is the optional quality block of a station.
type VideoQuality struct {
	VideoType string `json:"videoType,omitempty"`
}

// Image is the optional logo block of a station.
type Image struct {
	URI string `json:"uri,omitempty"`
}

// Station is one broadcast station catalog entry as stored in a source file.
// The original JSON object is retained so that fields this package does not
// model survive a merge or JSON export unchanged.
type Station struct {
	StationID      string        `json:"stationId,omitempty"`
	Name           string        `json:"name,omitempty"`
	CallSign       string        `json:"callSign,omitempty"`
	VideoQuality   *VideoQuality `json:"videoQuality,omitempty"`
	AvailableIn    []string      `json:"availableIn,omitempty"`
	PreferredImage *Image        `json:"preferredImage,omitempty"`

	raw json.RawMessage
}

// stationFields avoids recursion in MarshalJSON.
type stationFields Station

// UnmarshalJSON decodes the known fields one by one and keeps the raw object.
// The record must be a JSON object; a known field holding the wrong type is
// left at its zero value so that accessors fall back to their defaults.
func (s *Station) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		return errors.New("station record is null")
	}
	*s = Station{
		StationID:   stringField(obj["stationId"]),
		Name:        stringField(obj["name"]),
		CallSign:    stringField(obj["callSign"]),
		AvailableIn: stringsField(obj["availableIn"]),
	}
	if vq := objectField(obj["videoQuality"]); vq != nil {
		s.VideoQuality = &VideoQuality{VideoType: stringField(vq["videoType"])}
	}
	if img := objectField(obj["preferredImage"]); img != nil {
		s.PreferredImage = &Image{URI: stringField(img["uri"])}
	}
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

func stringField(raw json.RawMessage) string {
	var v string
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	return v
}

// stringsField keeps the string elements of an array and drops the rest.
func stringsField(raw json.RawMessage) []string {
	var elems []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &elems) != nil {
		return nil
	}
	var out []string
	for _, e := range elems {
		var v string
		if json.Unmarshal(e, &v) == nil {
			out = append(out, v)
		}
	}
	return out
}

func objectField(raw json.RawMessage) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	return obj
}

// MarshalJSON writes the original object when the station was decoded from a
// source, and the modelled fields otherwise.
func (s Station) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(stationFields(s))
}

// Quality returns the video type or "Unknown".
func (s *Station) Quality() string {
	if s.VideoQuality == nil || s.VideoQuality.VideoType == "" {
		return DefaultQuality
	}
	return s.VideoQuality.VideoType
}

// DisplayName returns the name or "N/A".
func (s *Station) DisplayName() string { return orDefault(s.Name, DefaultText) }

// DisplayCallSign returns the call sign or "N/A".
func (s *Station) DisplayCallSign() string { return orDefault(s.CallSign, DefaultText) }

// DisplayID returns the station id or "N/A".
func (s *Station) DisplayID() string { return orDefault(s.StationID, DefaultText) }

// LogoURL returns the preferred image URI or "None".
func (s *Station) LogoURL() string {
	if s.PreferredImage == nil {
		return DefaultNone
	}
	return orDefault(s.PreferredImage.URI, DefaultNone)
}

// Countries joins the availability list with sep, or returns "None" when the
// list is empty.
func (s *Station) Countries(sep string) string {
	if len(s.AvailableIn) == 0 {
		return DefaultNone
	}
	return strings.Join(s.AvailableIn, sep)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Breakdown reports record counts per source.
type Breakdown struct {
	Base  uint64 `json:"base"`
	User  uint64 `json:"user"`
	Total uint64 `json:"total"`
	// Combined is true when Total was read from a fresh combined file.
	Combined bool `json:"combined"`
}
