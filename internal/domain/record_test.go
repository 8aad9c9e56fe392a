package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Key(t *testing.T) {
	rec := Record{
		"code":   "abc",
		"empty":  "",
		"null":   nil,
		"num":    json.Number("42"),
		"float":  4.5,
		"intval": 7,
	}

	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{"code", "abc", true},
		{"empty", "", false},
		{"null", "", false},
		{"missing", "", false},
		{"num", "42", true},
		{"float", "4.5", true},
		{"intval", "7", true},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := rec.Key(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_Float(t *testing.T) {
	rec := Record{"a": 1.5, "b": json.Number("2.25"), "c": "3", "d": 4}

	v, ok := rec.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = rec.Float("b")
	assert.True(t, ok)
	assert.Equal(t, 2.25, v)

	_, ok = rec.Float("c")
	assert.False(t, ok)

	v, ok = rec.Float("d")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&TransportError{URL: "http://x", Status: 503, Err: errors.New("boom")}, "transport"},
		{fmt.Errorf("wrapped: %w", &FormatError{Reason: "not json"}), "format"},
		{&StoreIOError{Path: "/x", Err: errors.New("denied")}, "store_io"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorClass(tt.err))
	}
}

func TestTransportError_StatusText(t *testing.T) {
	assert.Equal(t, "N/A", (&TransportError{}).StatusText())
	assert.Equal(t, "404", (&TransportError{Status: 404}).StatusText())
	assert.Contains(t, (&TransportError{URL: "http://x", Err: errors.New("timeout")}).Error(), "status N/A")
}
