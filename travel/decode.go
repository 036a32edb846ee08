package travel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrMalformedJSON is returned when the model output is not a JSON object.
var ErrMalformedJSON = errors.New("malformed JSON object")

// ParseDataType maps "flight" or "lodging" to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToLower(strings.TrimSpace(s))) {
	case KindFlight:
		return KindFlight, nil
	case KindLodging:
		return KindLodging, nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// DecodeFlight reads a flight from the JSON object emitted by the model.
// Missing, null or unparseable fields take their defaults; negative numbers
// are clamped to zero and numeric strings are accepted.
func DecodeFlight(raw []byte) (Flight, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return Flight{}, err
	}

	f := DefaultFlight()
	f.OriginAirport = stringField(obj.Get("origin_airport"), f.OriginAirport)
	f.DestinationAirport = stringField(obj.Get("destination_airport"), f.DestinationAirport)
	f.Duration = intField(obj.Get("duration"), f.Duration, 0)
	f.TotalCost = floatField(obj.Get("total_cost"), f.TotalCost)
	f.TotalCostPerPerson = floatField(obj.Get("total_cost_per_person"), f.TotalCostPerPerson)
	f.Segment = intField(obj.Get("segment"), f.Segment, 0)
	f.FlightNumber = stringField(obj.Get("flight_number"), f.FlightNumber)
	return f, nil
}

// DecodeLodging reads a lodging from the JSON object emitted by the model.
// Guests and nights are at least one; dates may be date-only or RFC 3339.
func DecodeLodging(raw []byte) (Lodging, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return Lodging{}, err
	}

	l := DefaultLodging()
	l.Name = stringField(obj.Get("name"), l.Name)
	l.Location = stringField(obj.Get("location"), l.Location)
	l.NumberOfGuests = intField(obj.Get("number_of_guests"), l.NumberOfGuests, 1)
	l.TotalCost = floatField(obj.Get("total_cost"), l.TotalCost)
	l.TotalCostPerPerson = intField(obj.Get("total_cost_per_person"), l.TotalCostPerPerson, 0)
	l.NumberOfNights = intField(obj.Get("number_of_nights"), l.NumberOfNights, 1)
	l.CheckIn = timeField(obj.Get("check_in"), l.CheckIn)
	l.CheckOut = timeField(obj.Get("check_out"), l.CheckOut)
	return l, nil
}

func parseObject(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, ErrMalformedJSON
	}
	obj := gjson.ParseBytes(raw)
	if !obj.IsObject() {
		return gjson.Result{}, ErrMalformedJSON
	}
	return obj, nil
}

func stringField(r gjson.Result, def string) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	}
	return def
}

func number(r gjson.Result) (float64, bool) {
	var n float64
	switch r.Type {
	case gjson.Number:
		n = r.Num
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		s = strings.TrimLeft(s, "$€£¥")
		s = strings.ReplaceAll(s, ",", "")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = v
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func intField(r gjson.Result, def, floor int) int {
	n, ok := number(r)
	if !ok {
		return def
	}
	return max(floor, int(n))
}

func floatField(r gjson.Result, def float64) float64 {
	n, ok := number(r)
	if !ok {
		return def
	}
	return max(0, n)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func timeField(r gjson.Result, def time.Time) time.Time {
	if r.Type != gjson.String {
		return def
	}
	s := strings.TrimSpace(r.Str)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return def
}
