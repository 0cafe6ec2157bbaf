package clinic

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reading is a raw value typed at the kiosk. It accepts a JSON number, a
// numeric string or null; blank means the value was not measured.
type Reading string

func (r *Reading) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Reading(s)
		return nil
	}
	*r = Reading(b)
	return nil
}

func (r Reading) asFloat(field string) (*float64, error) {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ValidationError("%s must be a number", field)
	}
	if r, ok := vitalRanges[field]; ok && (f < r.min || f > r.max) {
		return nil, ValidationError("%s must be between %g and %g", field, r.min, r.max)
	}
	return &f, nil
}

// vitalRanges are the values a kiosk sensor can plausibly report. They also
// keep readings inside the NUMERIC(4,1) and INTEGER columns.
var vitalRanges = map[string]struct{ min, max float64 }{
	"temp": {25, 45},
	"spo2": {0, 100},
	"hr":   {0, 300},
}

func (r Reading) asInt(field string) (*int, error) {
	f, err := r.asFloat(field)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, ValidationError("%s must be a whole number", field)
	}
	n := int(*f)
	return &n, nil
}

// VitalsInput holds raw kiosk readings.
type VitalsInput struct {
	Temp Reading `json:"temp"`
	SpO2 Reading `json:"spo2"`
	HR   Reading `json:"hr"`
}

func (v VitalsInput) parse() (Vitals, error) {
	var out Vitals
	var err error
	if out.Temp, err = v.Temp.asFloat("temp"); err != nil {
		return Vitals{}, err
	}
	if out.SpO2, err = v.SpO2.asInt("spo2"); err != nil {
		return Vitals{}, err
	}
	if out.HR, err = v.HR.asInt("hr"); err != nil {
		return Vitals{}, err
	}
	return out, nil
}

type CheckInInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dob"`
	Phone       string `json:"phone"`
	Symptoms    string `json:"symptoms"`
	VitalsInput
}

func (in CheckInInput) normalize() (NewPatient, error) {
	p := NewPatient{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     optional(in.Phone),
		Symptoms:  optional(in.Symptoms),
	}
	if p.FirstName == "" || p.LastName == "" {
		return NewPatient{}, ValidationError("first name and last name are required")
	}
	dob, err := parseDate(in.DateOfBirth, "dob")
	if err != nil {
		return NewPatient{}, err
	}
	p.DateOfBirth = dob
	if p.Vitals, err = in.VitalsInput.parse(); err != nil {
		return NewPatient{}, err
	}
	return p, nil
}

type HeartbeatInput struct {
	PiIdentifier string `json:"piIdentifier"`
	Status       string `json:"status"`
	VitalsInput
}

type AppointmentInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DateOfBirth     string `json:"dob"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointmentTime"`
	Symptoms        string `json:"symptoms"`
}

func (in AppointmentInput) normalize(loc *time.Location) (NewAppointment, error) {
	a := NewAppointment{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     optional(in.Phone),
		Symptoms:  optional(in.Symptoms),
	}
	if a.FirstName == "" || a.LastName == "" {
		return NewAppointment{}, ValidationError("first name and last name are required")
	}
	at, err := parseTimestamp(in.AppointmentTime, loc)
	if err != nil {
		return NewAppointment{}, err
	}
	a.AppointmentTime = at
	if a.DateOfBirth, err = parseDate(in.DateOfBirth, "dob"); err != nil {
		return NewAppointment{}, err
	}
	return a, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseDate(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i := strings.IndexByte(s, 'T'); i == len(time.DateOnly) {
		s = s[:i]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, ValidationError("%s must be a date (YYYY-MM-DD)", field)
	}
	return &t, nil
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// parseTimestamp accepts RFC 3339 or a local datetime interpreted in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ValidationError("appointment time is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ValidationError("appointment time must be an ISO 8601 timestamp")
}
