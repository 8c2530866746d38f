package catalog

import (
	"fmt"
	"strings"

	"github.com/voyagen/stationvault/internal/models"
)

// Projectable fields for Field lookups.
const (
	FieldName     = "name"
	FieldCallSign = "callSign"
)

// findStation returns the first record with the given id. where names the
// source for the not-found message.
func findStation(scan scanFunc, id, where string) (models.Station, error) {
	var (
		found models.Station
		ok    bool
	)
	err := scan(func(st models.Station) bool {
		if st.StationID == id {
			found, ok = st, true
			return false
		}
		return true
	})
	if err != nil {
		return models.Station{}, err
	}
	if !ok {
		return models.Station{}, &NotFoundError{StationID: id, Path: where}
	}
	return found, nil
}

// fieldValue projects one field of st. ok is false when the record does not
// carry the field.
func fieldValue(st *models.Station, field string) (value string, ok bool, err error) {
	switch field {
	case FieldName:
		return st.Name, st.Name != "", nil
	case FieldCallSign:
		return st.CallSign, st.CallSign != "", nil
	}
	return "", false, fmt.Errorf("unknown station field %q (use %s or %s)", field, FieldName, FieldCallSign)
}

// RenderDetail formats the six display fields of a station, one per line, in
// a fixed order. Countries are joined with ", ".
func RenderDetail(st *models.Station) string {
	var b strings.Builder
	for _, row := range [][2]string{
		{"Station ID", st.DisplayID()},
		{"Name", st.DisplayName()},
		{"Call Sign", st.DisplayCallSign()},
		{"Quality", st.Quality()},
		{"Countries", st.Countries(", ")},
		{"Logo URL", st.LogoURL()},
	} {
		fmt.Fprintf(&b, "%-11s %s\n", row[0]+":", row[1])
	}
	return b.String()
}
