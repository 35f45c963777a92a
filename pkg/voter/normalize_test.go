package voter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_SpreadsheetRow(t *testing.T) {
	got := NormalizeRow("r1", map[string]string{"Booth Number": "5", "Name": "X"}, 0)
	want := Voter{
		ID:           "r1",
		Name:         "X",
		BoothNumber:  "5",
		SerialNumber: "1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeRow mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_VoterIDSynonyms(t *testing.T) {
	for _, key := range []string{"Voter ID", "voterId", "Voter Id", "voter_id", "VoterID"} {
		v := Normalize("x", map[string]any{key: "AB123"}, 0)
		if v.VoterID != "AB123" {
			t.Errorf("key %q: VoterID = %q, want AB123", key, v.VoterID)
		}
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"first alias wins", map[string]any{"name": "a", "Name": "b", "NAME": "c"}, "a"},
		{"second alias", map[string]any{"Name": "b", "NAME": "c"}, "b"},
		{"empty string still wins", map[string]any{"name": "", "Name": "b"}, ""},
		{"nil is absent", map[string]any{"name": nil, "Name": "b"}, "b"},
		{"nothing present", map[string]any{"other": "z"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize("id", tt.raw, 0)
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestNormalize_LooseHeader(t *testing.T) {
	v := Normalize("id", map[string]any{" Booth Number ": "12"}, 0)
	if v.BoothNumber != "12" {
		t.Errorf("BoothNumber = %q, want 12", v.BoothNumber)
	}
}

func TestNormalize_Numbers(t *testing.T) {
	v := Normalize("id", map[string]any{
		"boothNumber":  float64(12),
		"age":          float64(41),
		"serialNumber": float64(7),
	}, 3)
	if v.BoothNumber != "12" {
		t.Errorf("BoothNumber = %q, want 12", v.BoothNumber)
	}
	if v.Age == nil || *v.Age != 41 {
		t.Errorf("Age = %v, want 41", v.Age)
	}
	if v.SerialNumber != "7" {
		t.Errorf("SerialNumber = %q, want 7", v.SerialNumber)
	}
}

func TestNormalize_AgeInvalid(t *testing.T) {
	for _, raw := range []any{"forty", 41.5, "", -3} {
		v := Normalize("id", map[string]any{"age": raw}, 0)
		if v.Age != nil {
			t.Errorf("age %v: Age = %d, want nil", raw, *v.Age)
		}
	}
}

func TestNormalize_SerialFallback(t *testing.T) {
	v := Normalize("id", map[string]any{}, 9)
	if v.SerialNumber != "10" {
		t.Errorf("SerialNumber = %q, want 10", v.SerialNumber)
	}
	v = Normalize("id", map[string]any{"Serial Number": ""}, 9)
	if v.SerialNumber != "" {
		t.Errorf("present empty serial = %q, want empty", v.SerialNumber)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	age := 30
	in := Voter{
		ID:                    "v1",
		Name:                  "Ravi Kumar",
		VoterID:               "AB123",
		BoothNumber:           "12",
		PollingStationAddress: "Govt School",
		Village:               "Rampur",
		Age:                   &age,
		Gender:                "M",
		SerialNumber:          "4",
	}
	out := Normalize("v1", in.Fields(), 0)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAliasesCoverEveryField(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range Aliases {
		if len(a.Keys) == 0 {
			t.Errorf("field %q has no alias keys", a.Field)
		}
		if a.Keys[0] != a.Field {
			t.Errorf("field %q: first alias %q should be the canonical name", a.Field, a.Keys[0])
		}
		seen[a.Field] = true
	}
	for _, f := range []string{FieldName, FieldVoterID, FieldBoothNumber, FieldPollingStationAddress,
		FieldVillage, FieldAge, FieldGender, FieldSerialNumber} {
		if !seen[f] {
			t.Errorf("field %q missing from alias table", f)
		}
	}
}
