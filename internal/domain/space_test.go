package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const swpcWarning = "Space Weather Message Code: WARK05\r\n" +
	"Serial Number: 1234\r\n" +
	"WARNING: Geomagnetic K-index of 5 expected\r\n" +
	"Valid From: 2024 May 10 1200 UTC\r\n" +
	"Valid To: 2024 May 10 2359 UTC\r\n" +
	"Warning Condition: Onset\r\n" +
	"NOAA Scale: G1 - Minor\r\n" +
	"\r\n" +
	"Potential Impacts: Area of impact primarily poleward of 60 degrees.\r\n" +
	"Induced Currents - Weak power grid fluctuations can occur."

func TestParseSWPCMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    SWPCMessage
	}{
		{
			name:    "warning with all fields",
			message: swpcWarning,
			want: SWPCMessage{
				AlertType: "WARNING",
				KIndex:    "5",
				ValidFrom: "2024 May 10 1200 UTC",
				ValidTo:   "2024 May 10 2359 UTC",
				Impacts:   "Area of impact primarily poleward of 60 degrees. Induced Currents - Weak power grid fluctuations can occur.",
			},
		},
		{
			name:    "alert wins over warning",
			message: "ALERT: Geomagnetic K-index of 7\nWARNING text follows",
			want:    SWPCMessage{AlertType: "ALERT", KIndex: "7"},
		},
		{
			name:    "no matches",
			message: "Summary bulletin",
			want:    SWPCMessage{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSWPCMessage(tt.message))
		})
	}
}

func TestParseNOAAProduct(t *testing.T) {
	p := NOAAProduct{ProductID: "K05W", IssueDatetime: "2024-05-10 11:53:21.497", Message: swpcWarning}

	rec, err := ParseNOAAProduct(p)
	require.NoError(t, err)

	assert.Equal(t, "K05W", rec["product_id"])
	assert.Equal(t, "WARNING", rec["alert_type"])
	assert.Equal(t, "5", rec["k_index"])
	assert.Regexp(t, `^noaa-[0-9a-f]{16}$`, rec["noaa_id"])

	again, err := ParseNOAAProduct(p)
	require.NoError(t, err)
	assert.Equal(t, rec["noaa_id"], again["noaa_id"], "derived key must be deterministic")

	p.IssueDatetime = "2024-05-10 11:53:22.000"
	other, err := ParseNOAAProduct(p)
	require.NoError(t, err)
	assert.NotEqual(t, rec["noaa_id"], other["noaa_id"])
}

func TestParseNOAAProduct_MissingKeyFields(t *testing.T) {
	_, err := ParseNOAAProduct(NOAAProduct{IssueDatetime: "2024-05-10 11:53:21.497"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product_id")

	_, err = ParseNOAAProduct(NOAAProduct{ProductID: "K05W"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue_datetime")
}

func TestClassifyDONKI(t *testing.T) {
	tests := []struct {
		body string
		want any
	}{
		{"## Summary: Radiation Belt Enhancement observed", "Radiation Belt Enhancement"},
		{"Updated CME analysis", "Coronal Mass Ejection"},
		{"An M2.1 Solar Flare occurred", "Solar Flare"},
		{"Weekly report", nil},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDONKI(tt.body))
		})
	}
}

func TestParseDONKIMessage(t *testing.T) {
	m := DONKIMessage{
		MessageType:      "RBE",
		MessageID:        "20240510-AL-001",
		MessageURL:       "https://kauai.ccmc.gsfc.nasa.gov/DONKI/view/Alert/1/1",
		MessageIssueTime: "2024-05-10T12:00Z",
		MessageBody:      "## Message Type: Space Weather Notification\n\n## Summary:\n  Significantly elevated energetic electron flux levels.\n",
	}

	rec, err := ParseDONKIMessage(m)
	require.NoError(t, err)

	assert.Equal(t, "20240510-AL-001", rec["message_id"])
	assert.Equal(t, "2024-05-10T12:00Z", rec["issue_datetime"])
	assert.Equal(t, "RBE", rec["message_type"])
	assert.Equal(t, "## Summary:", rec["event_summary"])
	assert.Nil(t, rec["alert_type"])

	_, err = ParseDONKIMessage(DONKIMessage{MessageBody: "no id"})
	require.Error(t, err)
}
