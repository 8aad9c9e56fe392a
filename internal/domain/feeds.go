package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// FeedItem is one RSS <item> reduced to the elements the feed parsers use.
// Extensions holds namespaced children as "prefix:name" -> text, first wins.
type FeedItem struct {
	Title       string
	Description string
	Link        string
	GUID        string
	Published   string
	Extensions  map[string]string
}

var (
	// IGN descriptions read like "Terremoto de magnitud 2.1 en GOLFO DE CADIZ
	// en la fecha 10/05/2024 08:12:45 en la siguiente localización ...".
	ignMagnitudeRe = regexp.MustCompile(`magnitud (\d+(?:\.\d+)?)`)
	ignLocationRe  = regexp.MustCompile(`en (.*?) en la fecha`)
	ignDatetimeRe  = regexp.MustCompile(`fecha ([\d/ :]+) en la siguiente`)

	// magnitudeRe matches GDACS severity strings such as "Magnitude 6.1M, Depth:10km".
	magnitudeRe = regexp.MustCompile(`Magnitude\s+([0-9.]+)`)
)

// IGNQuake holds the fields mined from an IGN description.
type IGNQuake struct {
	Magnitude     any
	Location      any
	EventDatetime any
}

// ParseIGNDescription extracts magnitude, location and datetime from an IGN
// description. Fields without a match are nil.
func ParseIGNDescription(description string) IGNQuake {
	return IGNQuake{
		Magnitude:     floatGroup(ignMagnitudeRe, description),
		Location:      firstGroup(ignLocationRe, description),
		EventDatetime: firstGroup(ignDatetimeRe, description),
	}
}

// ParseIGNItem maps one IGN RSS item into a record keyed by ign_id.
func ParseIGNItem(item FeedItem) (Record, error) {
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)
	if title == "" {
		return nil, errMissing("title")
	}
	if description == "" {
		return nil, errMissing("description")
	}
	q := ParseIGNDescription(description)
	return Record{
		"ign_id":         deriveKey("ign", title, description),
		"title":          title,
		"description":    description,
		"event_datetime": q.EventDatetime,
		"magnitude":      q.Magnitude,
		"location":       q.Location,
		"link":           nullable(item.Link),
	}, nil
}

// GDACSMagnitude reads the magnitude from the severity element, falling back
// to the title and description.
func GDACSMagnitude(severity, title, description string) any {
	if v := floatGroup(magnitudeRe, severity); v != nil {
		return v
	}
	return floatGroup(magnitudeRe, title+" "+description)
}

// ParseGDACSItem maps one GDACS RSS item into a record keyed by gdacs_id.
func ParseGDACSItem(item FeedItem) (Record, error) {
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)
	guid := strings.TrimSpace(item.GUID)
	if title == "" && guid == "" {
		return nil, errMissing("title")
	}

	eventDatetime := nullable(item.Extensions["gdacs:fromdate"])
	if eventDatetime == nil {
		eventDatetime = nullable(item.Published)
	}

	id := guid
	if id == "" {
		ts, _ := eventDatetime.(string)
		id = deriveKey("gdacs", title, ts)
	}

	return Record{
		"gdacs_id":       id,
		"title":          title,
		"description":    description,
		"event_datetime": eventDatetime,
		"magnitude":      GDACSMagnitude(item.Extensions["gdacs:severity"], title, description),
		"country":        nullable(item.Extensions["gdacs:country"]),
		"alertlevel":     nullable(item.Extensions["gdacs:alertlevel"]),
		"event_type":     nullable(item.Extensions["gdacs:eventtype"]),
		"link":           nullable(item.Link),
	}, nil
}

// ParseMeteoalarmItem maps one Meteoalarm RSS item into a record keyed by guid.
// Every element is required.
func ParseMeteoalarmItem(item FeedItem) (Record, error) {
	fields := []struct{ name, value string }{
		{"title", item.Title},
		{"description", item.Description},
		{"pubDate", item.Published},
		{"link", item.Link},
		{"guid", item.GUID},
	}
	rec := make(Record, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, errMissing(f.name)
		}
		rec[f.name] = f.value
	}
	return rec, nil
}

// floatGroup parses the first capture group of re in s as a float, or nil.
func floatGroup(re *regexp.Regexp, s string) any {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return v
}
