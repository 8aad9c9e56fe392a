package domain

import (
	"regexp"
	"strings"
)

var (
	// kIndexRe matches the geomagnetic K-index in SWPC bodies, e.g. "K-index of 5".
	kIndexRe = regexp.MustCompile(`K-index of (\d+)`)

	// validFromRe and validToRe capture the rest of the line after the label.
	validFromRe = regexp.MustCompile(`Valid From:\s*([^\r\n]+)`)
	validToRe   = regexp.MustCompile(`Valid To:\s*([^\r\n]+)`)

	// impactsRe captures everything after "Potential Impacts:" across lines.
	impactsRe = regexp.MustCompile(`(?s)Potential Impacts:(.+)`)
)

// NOAAProduct is one entry of the SWPC alerts JSON array.
type NOAAProduct struct {
	ProductID     string `json:"product_id"`
	IssueDatetime string `json:"issue_datetime"`
	Message       string `json:"message"`
}

// SWPCMessage holds the fields mined from a SWPC message body.
type SWPCMessage struct {
	AlertType any
	KIndex    any
	ValidFrom any
	ValidTo   any
	Impacts   any
}

// ParseSWPCMessage extracts the structured fields of a SWPC message body. A
// pattern that does not match yields nil for its field.
func ParseSWPCMessage(message string) SWPCMessage {
	var m SWPCMessage
	switch {
	case strings.Contains(message, "ALERT"):
		m.AlertType = "ALERT"
	case strings.Contains(message, "WARNING"):
		m.AlertType = "WARNING"
	}
	m.KIndex = firstGroup(kIndexRe, message)
	m.ValidFrom = firstGroup(validFromRe, message)
	m.ValidTo = firstGroup(validToRe, message)
	if v := firstGroup(impactsRe, message); v != nil {
		s := v.(string)
		s = strings.ReplaceAll(s, "\r\n", " ")
		s = strings.ReplaceAll(s, "\n", " ")
		m.Impacts = s
	}
	return m
}

// ParseNOAAProduct maps one SWPC product into a record keyed by noaa_id.
func ParseNOAAProduct(p NOAAProduct) (Record, error) {
	if strings.TrimSpace(p.ProductID) == "" {
		return nil, errMissing("product_id")
	}
	if strings.TrimSpace(p.IssueDatetime) == "" {
		return nil, errMissing("issue_datetime")
	}
	msg := ParseSWPCMessage(p.Message)
	return Record{
		"noaa_id":        deriveKey("noaa", p.ProductID, p.IssueDatetime),
		"product_id":     p.ProductID,
		"issue_datetime": p.IssueDatetime,
		"message":        p.Message,
		"alert_type":     msg.AlertType,
		"k_index":        msg.KIndex,
		"valid_from":     msg.ValidFrom,
		"valid_to":       msg.ValidTo,
		"impacts":        msg.Impacts,
	}, nil
}

// DONKIMessage is one entry of the DONKI notifications JSON array.
type DONKIMessage struct {
	MessageType      string `json:"messageType"`
	MessageID        string `json:"messageID"`
	MessageURL       string `json:"messageURL"`
	MessageIssueTime string `json:"messageIssueTime"`
	MessageBody      string `json:"messageBody"`
}

// ClassifyDONKI returns the alert type named in a DONKI body, or nil.
func ClassifyDONKI(body string) any {
	switch {
	case strings.Contains(body, "Radiation Belt Enhancement"):
		return "Radiation Belt Enhancement"
	case strings.Contains(body, "CME"):
		return "Coronal Mass Ejection"
	case strings.Contains(body, "Solar Flare"):
		return "Solar Flare"
	}
	return nil
}

// DONKISummary returns the first line mentioning a summary or an elevated flux.
func DONKISummary(body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if strings.Contains(line, "Summary") || strings.Contains(line, "Significantly elevated") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// ParseDONKIMessage maps one DONKI notification into a record keyed by message_id.
func ParseDONKIMessage(m DONKIMessage) (Record, error) {
	if strings.TrimSpace(m.MessageID) == "" {
		return nil, errMissing("messageID")
	}
	return Record{
		"message_id":     m.MessageID,
		"message_type":   nullable(m.MessageType),
		"issue_datetime": m.MessageIssueTime,
		"body":           m.MessageBody,
		"url":            m.MessageURL,
		"alert_type":     ClassifyDONKI(m.MessageBody),
		"event_summary":  DONKISummary(m.MessageBody),
	}, nil
}

// firstGroup returns the trimmed first capture group of re in s, or nil.
func firstGroup(re *regexp.Regexp, s string) any {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return strings.TrimSpace(m[1])
}
