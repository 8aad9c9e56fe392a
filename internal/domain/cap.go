package domain

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// CAPNamespace is the Common Alerting Protocol 1.2 XML namespace.
const CAPNamespace = "urn:oasis:names:tc:emergency:cap:1.2"

// Meteoalerta parameter names carried in AEMET CAP <parameter> blocks.
const (
	aemetLevel       = "AEMET-Meteoalerta nivel"
	aemetParameter   = "AEMET-Meteoalerta parametro"
	aemetProbability = "AEMET-Meteoalerta probabilidad"
)

type capAlert struct {
	XMLName    xml.Name  `xml:"urn:oasis:names:tc:emergency:cap:1.2 alert"`
	Identifier string    `xml:"urn:oasis:names:tc:emergency:cap:1.2 identifier"`
	Sender     string    `xml:"urn:oasis:names:tc:emergency:cap:1.2 sender"`
	Sent       string    `xml:"urn:oasis:names:tc:emergency:cap:1.2 sent"`
	Status     string    `xml:"urn:oasis:names:tc:emergency:cap:1.2 status"`
	MsgType    string    `xml:"urn:oasis:names:tc:emergency:cap:1.2 msgType"`
	Infos      []capInfo `xml:"urn:oasis:names:tc:emergency:cap:1.2 info"`
}

type capInfo struct {
	Language    string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 language"`
	Event       string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 event"`
	Urgency     string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 urgency"`
	Severity    string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 severity"`
	Certainty   string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 certainty"`
	Onset       string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 onset"`
	Expires     string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 expires"`
	Headline    string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 headline"`
	Description string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 description"`
	Instruction string         `xml:"urn:oasis:names:tc:emergency:cap:1.2 instruction"`
	Parameters  []capParameter `xml:"urn:oasis:names:tc:emergency:cap:1.2 parameter"`
	Areas       []capArea      `xml:"urn:oasis:names:tc:emergency:cap:1.2 area"`
}

type capParameter struct {
	ValueName string `xml:"urn:oasis:names:tc:emergency:cap:1.2 valueName"`
	Value     string `xml:"urn:oasis:names:tc:emergency:cap:1.2 value"`
}

type capArea struct {
	AreaDesc string `xml:"urn:oasis:names:tc:emergency:cap:1.2 areaDesc"`
}

// ParseCAPAlert maps one CAP 1.2 document into a record keyed by identifier.
// When the alert carries several <info> blocks (one per language), the first
// in document order is used.
func ParseCAPAlert(data []byte) (Record, error) {
	var a capAlert
	if err := xml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode CAP alert: %w", err)
	}
	identifier := strings.TrimSpace(a.Identifier)
	if identifier == "" {
		return nil, errMissing("identifier")
	}
	if len(a.Infos) == 0 {
		return nil, errMissing("info")
	}
	info := a.Infos[0]

	area := ""
	if len(info.Areas) > 0 {
		area = strings.TrimSpace(info.Areas[0].AreaDesc)
	}

	return Record{
		"identifier":  identifier,
		"sender":      strings.TrimSpace(a.Sender),
		"sent":        strings.TrimSpace(a.Sent),
		"status":      strings.TrimSpace(a.Status),
		"msg_type":    strings.TrimSpace(a.MsgType),
		"language":    strings.TrimSpace(info.Language),
		"event":       strings.TrimSpace(info.Event),
		"urgency":     strings.TrimSpace(info.Urgency),
		"severity":    strings.TrimSpace(info.Severity),
		"certainty":   strings.TrimSpace(info.Certainty),
		"onset":       strings.TrimSpace(info.Onset),
		"expires":     strings.TrimSpace(info.Expires),
		"headline":    strings.TrimSpace(info.Headline),
		"description": strings.TrimSpace(info.Description),
		"instruction": strings.TrimSpace(info.Instruction),
		"area":        area,
		"level":       info.parameter(aemetLevel),
		"parameter":   info.parameter(aemetParameter),
		"probability": info.parameter(aemetProbability),
	}, nil
}

// parameter returns the value of the first parameter named name, or "".
func (i capInfo) parameter(name string) string {
	for _, p := range i.Parameters {
		if strings.TrimSpace(p.ValueName) == name {
			return strings.TrimSpace(p.Value)
		}
	}
	return ""
}
