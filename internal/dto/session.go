package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

// Minutes accepts a JSON number or numeric string. Anything else, including
// NaN and infinities, decodes as absent so the default duration applies.
type Minutes struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	m.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	m.Value = &v
	return nil
}

// GenerateSessionRequest is the POST /teacher/generate payload.
type GenerateSessionRequest struct {
	CourseID        string  `json:"courseId"`
	DurationMinutes Minutes `json:"durationMinutes"`
}

// NoClassRequest is the POST /teacher/no-class payload.
type NoClassRequest struct {
	CourseID string `json:"courseId"`
}

// SessionResponse pairs a session with its QR payload. QR is nil when no
// session is open.
type SessionResponse struct {
	QRString *string         `json:"qrString"`
	Session  *models.Session `json:"session,omitempty"`
}

// ScanRequest is the POST /attendance/scan payload.
type ScanRequest struct {
	QRString string `json:"qrString" binding:"required"`
}
