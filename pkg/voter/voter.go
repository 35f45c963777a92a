// Package voter defines the canonical Voter record and the normalizer that
// builds it from raw key/value rows coming out of the record store or a
// parsed spreadsheet.
package voter

// Voter is one canonical voter record. Values are built once by Normalize and
// never mutated afterwards; edits go back to the record store.
type Voter struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	VoterID               string `json:"voterId"`
	BoothNumber           string `json:"boothNumber"`
	PollingStationAddress string `json:"pollingStationAddress"`
	Village               string `json:"village,omitempty"`
	Age                   *int   `json:"age,omitempty"`
	Gender                string `json:"gender,omitempty"`
	SerialNumber          string `json:"serialNumber"`
}

// Canonical field names. They double as the preferred raw keys when a voter
// is written back to the store.
const (
	FieldName                  = "name"
	FieldVoterID               = "voterId"
	FieldBoothNumber           = "boothNumber"
	FieldPollingStationAddress = "pollingStationAddress"
	FieldVillage               = "village"
	FieldAge                   = "age"
	FieldGender                = "gender"
	FieldSerialNumber          = "serialNumber"
)

// Fields returns v as a raw row keyed by canonical field names. Absent
// optional fields are omitted.
func (v Voter) Fields() map[string]any {
	m := map[string]any{
		FieldName:                  v.Name,
		FieldVoterID:               v.VoterID,
		FieldBoothNumber:           v.BoothNumber,
		FieldPollingStationAddress: v.PollingStationAddress,
		FieldSerialNumber:          v.SerialNumber,
	}
	if v.Village != "" {
		m[FieldVillage] = v.Village
	}
	if v.Age != nil {
		m[FieldAge] = *v.Age
	}
	if v.Gender != "" {
		m[FieldGender] = v.Gender
	}
	return m
}
