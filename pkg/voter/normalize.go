package voter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Alias is the ordered list of raw keys tried for one canonical field.
type Alias struct {
	Field string
	Keys  []string
}

// Aliases is the resolution table. Order matters: the first key present in a
// raw row wins, even when its value is the empty string.
var Aliases = []Alias{
	{FieldName, []string{"name", "Name", "NAME", "Voter Name", "voter_name", "Full Name"}},
	{FieldVoterID, []string{"voterId", "VoterId", "VoterID", "Voter ID", "Voter Id", "voter_id", "VOTER ID", "EPIC No", "epic"}},
	{FieldBoothNumber, []string{"boothNumber", "BoothNumber", "Booth Number", "Booth No", "booth_number", "BOOTH NUMBER", "booth"}},
	{FieldPollingStationAddress, []string{"pollingStationAddress", "PollingStationAddress", "Polling Station Address", "polling_station_address", "Polling Station", "POLLING STATION ADDRESS"}},
	{FieldVillage, []string{"village", "Village", "VILLAGE"}},
	{FieldAge, []string{"age", "Age", "AGE"}},
	{FieldGender, []string{"gender", "Gender", "GENDER", "Sex", "sex"}},
	{FieldSerialNumber, []string{"serialNumber", "SerialNumber", "Serial Number", "serial_number", "Sr No", "S.No", "SERIAL NUMBER"}},
}

// Resolve returns the raw value for field using the alias table and whether
// any alias was present. A key matches exactly first; failing that, a key
// that equals the alias after trimming and NFC normalization matches, which
// absorbs spreadsheet headers with stray spaces or decomposed accents.
func Resolve(raw map[string]any, field string) (any, bool) {
	keys := aliasKeys(field)
	if keys == nil {
		return nil, false
	}
	var loose map[string]string
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
		if loose == nil {
			loose = looseIndex(raw)
		}
		if orig, ok := loose[canonicalKey(k)]; ok {
			return raw[orig], true
		}
	}
	return nil, false
}

// Normalize builds a canonical Voter from a raw row. index is the row's
// position in its source and only feeds the serial number fallback.
func Normalize(id string, raw map[string]any, index int) Voter {
	v := Voter{
		ID:                    id,
		Name:                  resolveString(raw, FieldName),
		VoterID:               resolveString(raw, FieldVoterID),
		BoothNumber:           resolveString(raw, FieldBoothNumber),
		PollingStationAddress: resolveString(raw, FieldPollingStationAddress),
		Village:               resolveString(raw, FieldVillage),
		Gender:                resolveString(raw, FieldGender),
		SerialNumber:          resolveString(raw, FieldSerialNumber),
	}
	if a, ok := Resolve(raw, FieldAge); ok {
		v.Age = parseAge(a)
	}
	if _, ok := Resolve(raw, FieldSerialNumber); !ok {
		v.SerialNumber = strconv.Itoa(index + 1)
	}
	return v
}

// NormalizeRow is Normalize for string-valued rows, as produced by the
// spreadsheet codec.
func NormalizeRow(id string, row map[string]string, index int) Voter {
	raw := make(map[string]any, len(row))
	for k, v := range row {
		raw[k] = v
	}
	return Normalize(id, raw, index)
}

// Stringify renders a raw value the way it is displayed and compared.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func resolveString(raw map[string]any, field string) string {
	v, ok := Resolve(raw, field)
	if !ok {
		return ""
	}
	return Stringify(v)
}

func parseAge(v any) *int {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		n = int(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	if n < 0 {
		return nil
	}
	return &n
}

func aliasKeys(field string) []string {
	for _, a := range Aliases {
		if a.Field == field {
			return a.Keys
		}
	}
	return nil
}

func canonicalKey(k string) string {
	return norm.NFC.String(strings.TrimSpace(k))
}

// looseIndex maps canonical keys to the original raw key. Keys that collide
// after canonicalization resolve to the lexically smallest original so the
// result does not depend on map iteration order.
func looseIndex(raw map[string]any) map[string]string {
	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	idx := make(map[string]string, len(keys))
	for _, k := range keys {
		ck := canonicalKey(k)
		if _, ok := idx[ck]; !ok {
			idx[ck] = k
		}
	}
	return idx
}
