package domain

import (
	"strconv"
	"strings"
)

// FIRMSRow is one CSV data row keyed by header name.
type FIRMSRow map[string]string

// ParseFIRMSRow maps one FIRMS hotspot into a record. The firms_id is a hash
// of the raw coordinate and acquisition columns, so identical detections
// collapse to one stored record.
func ParseFIRMSRow(row FIRMSRow) (Record, error) {
	lat := strings.TrimSpace(row["latitude"])
	lon := strings.TrimSpace(row["longitude"])
	acqDate := strings.TrimSpace(row["acq_date"])
	acqTime := strings.TrimSpace(row["acq_time"])
	for _, field := range []string{"latitude", "longitude", "acq_date", "acq_time"} {
		if strings.TrimSpace(row[field]) == "" {
			return nil, errMissing(field)
		}
	}

	return Record{
		"firms_id":       deriveKey("firms", lat, lon, acqDate, acqTime),
		"event_datetime": acqDate + " " + acqTime,
		"latitude":       numberOrNil(lat),
		"longitude":      numberOrNil(lon),
		"brightness":     numberOrNil(row["brightness"]),
		"confidence":     numberOrText(row["confidence"]),
		"satellite":      nullable(row["satellite"]),
		"instrument":     nullable(row["instrument"]),
		"daynight":       nullable(row["daynight"]),
		"frp":            numberOrNil(row["frp"]),
		"alert_type":     "wildfire",
	}, nil
}

// numberOrNil parses s as a float, returning nil when it is empty or not numeric.
func numberOrNil(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return v
}

// numberOrText keeps categorical values such as "n" or "h" as text.
func numberOrText(s string) any {
	if v := numberOrNil(s); v != nil {
		return v
	}
	return nullable(s)
}
