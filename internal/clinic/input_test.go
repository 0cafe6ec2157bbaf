package clinic

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCheckInInputNormalize(t *testing.T) {
	var in CheckInInput
	body := `{"firstName":"  Ada ","lastName":"Lovelace","dob":"1990-04-02T00:00:00.000Z",
		"phone":"  ","symptoms":"cough","temp":"37.5","spo2":97,"hr":null}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := in.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.FirstName != "Ada" {
		t.Errorf("first name = %q", p.FirstName)
	}
	if p.Phone != nil {
		t.Errorf("blank phone should be absent, got %q", *p.Phone)
	}
	if p.Symptoms == nil || *p.Symptoms != "cough" {
		t.Errorf("symptoms = %v", p.Symptoms)
	}
	if p.DateOfBirth == nil || !p.DateOfBirth.Equal(time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dob = %v", p.DateOfBirth)
	}
	if p.Temp == nil || *p.Temp != 37.5 {
		t.Errorf("temp = %v", p.Temp)
	}
	if p.SpO2 == nil || *p.SpO2 != 97 {
		t.Errorf("spo2 = %v", p.SpO2)
	}
	if p.HR != nil {
		t.Errorf("null hr should be absent, got %d", *p.HR)
	}
}

func TestCheckInInputRejects(t *testing.T) {
	tests := []struct {
		name string
		in   CheckInInput
	}{
		{"blank first name", CheckInInput{FirstName: " ", LastName: "L"}},
		{"blank last name", CheckInInput{FirstName: "A"}},
		{"bad dob", CheckInInput{FirstName: "A", LastName: "L", DateOfBirth: "02/04/1990"}},
		{"bad temp", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{Temp: "hot"}}},
		{"fractional spo2", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{SpO2: "97.5"}}},
		{"temp out of range", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{Temp: "1234"}}},
		{"spo2 above 100", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{SpO2: "101"}}},
		{"huge hr", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{HR: "1e12"}}},
		{"negative hr", CheckInInput{FirstName: "A", LastName: "L", VitalsInput: VitalsInput{HR: "-5"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.normalize()
			if KindOf(err) != KindValidation {
				t.Fatalf("err = %v, want a validation error", err)
			}
		})
	}
}

func TestReadingUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want Reading
	}{
		{`98`, "98"},
		{`"98"`, "98"},
		{`36.6`, "36.6"},
		{`null`, ""},
		{`""`, ""},
	}

	for _, tt := range tests {
		var r Reading
		if err := json.Unmarshal([]byte(tt.raw), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if r != tt.want {
			t.Errorf("unmarshal %s = %q, want %q", tt.raw, r, tt.want)
		}
	}
}

func TestAppointmentInputNormalize(t *testing.T) {
	loc := time.FixedZone("clinic", 7*3600)

	in := AppointmentInput{FirstName: "Grace", LastName: "Hopper", AppointmentTime: "2025-01-06T09:30"}
	a, err := in.normalize(loc)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := time.Date(2025, 1, 6, 9, 30, 0, 0, loc)
	if !a.AppointmentTime.Equal(want) {
		t.Errorf("time = %v, want %v", a.AppointmentTime, want)
	}

	in.AppointmentTime = "2025-01-06T02:30:00Z"
	if a, err = in.normalize(loc); err != nil || !a.AppointmentTime.Equal(want) {
		t.Errorf("rfc3339 time = %v (%v), want %v", a.AppointmentTime, err, want)
	}

	in.AppointmentTime = ""
	if _, err := in.normalize(loc); KindOf(err) != KindValidation {
		t.Errorf("missing time: err = %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := withMessage(ErrStageEmpty, "no payment patients waiting")
	if KindOf(wrapped) != KindConflict {
		t.Errorf("kind = %v", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "stage_empty" {
		t.Errorf("code = %q", CodeOf(wrapped))
	}
	if wrapped.Error() != "no payment patients waiting" {
		t.Errorf("message = %q", wrapped.Error())
	}
	if KindOf(errPlain("boom")) != KindInfrastructure {
		t.Error("foreign errors should be infrastructure")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
