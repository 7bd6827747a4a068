package meal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Names assigned by the normalizer depending on the homogeneity flag.
const (
	NameHomogeneous   = "Meal"
	NameMixed         = "Analyzed Meal"
	DefaultItemName   = "Item"
	ItemIDPrefix      = "it"
	AnalyzedMealIDTag = "meal"
)

// nutrientField maps one nutrient on the analysis payload onto a Macro field.
// The same key is used under items[].macros and under totalMacros.
type nutrientField struct {
	key string
	get func(*Macro) *float64
}

// nutrientFields is the default-value table for item macros: every key that
// is missing or invalid reads as 0. Calories are handled separately because
// they live outside Macro.
var nutrientFields = []nutrientField{
	{"protein_g", func(m *Macro) *float64 { return &m.Protein }},
	{"carbs_g", func(m *Macro) *float64 { return &m.Carbs }},
	{"fats_g", func(m *Macro) *float64 { return &m.Fat }},
	{"fiber_g", func(m *Macro) *float64 { return &m.Fiber }},
	{"sugar_g", func(m *Macro) *float64 { return &m.Sugar }},
	{"sodium_mg", func(m *Macro) *float64 { return &m.Sodium }},
}

// Number is the result of reading one numeric field from a payload.
// Valid is false when the field was missing, null, non-numeric, not finite or negative.
type Number struct {
	Value float64
	Valid bool
}

// Or returns the value when valid, else def.
func (n Number) Or(def float64) float64 {
	if n.Valid {
		return n.Value
	}
	return def
}

// ReadNumber coerces a payload value to a non-negative finite number.
// JSON numbers and numeric strings are accepted; anything else is invalid.
// It never panics.
func ReadNumber(r gjson.Result) Number {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		v, err := cast.ToFloat64E(strings.TrimSpace(r.Str))
		if err != nil {
			return Number{}
		}
		f = v
	default:
		return Number{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

// Normalize converts a raw analysis payload into a Meal.
// It has no failure mode: malformed JSON reads as an empty object, a missing
// or non-array items field reads as no items, and every invalid numeric field
// reads as 0. Service totals win over item sums field by field.
// The meal id and timestamp come from now, never from the payload.
func Normalize(payload []byte, photo string, now time.Time) Meal {
	doc := gjson.Result{}
	if gjson.ValidBytes(payload) {
		if parsed := gjson.ParseBytes(payload); parsed.IsObject() {
			doc = parsed
		}
	}

	items := normalizeItems(doc.Get("items"))

	m := Meal{
		ID:        NewID(AnalyzedMealIDTag, now),
		Name:      NameMixed,
		Items:     items,
		Photo:     photo,
		Timestamp: now.UnixMilli(),
	}
	if doc.Get("isHomogeneousFoodDetected").Bool() {
		m.Name = NameHomogeneous
	}

	totals := doc.Get("totalMacros")

	var calSum float64
	var macroSum Macro
	for _, it := range items {
		calSum += it.Calories
		for _, f := range nutrientFields {
			*f.get(&macroSum) += *f.get(&it.Macros)
		}
	}

	m.TotalCalories = ReadNumber(totals.Get("calories")).Or(calSum)
	for _, f := range nutrientFields {
		*f.get(&m.TotalMacros) = ReadNumber(totals.Get(f.key)).Or(*f.get(&macroSum))
	}

	return m
}

func normalizeItems(arr gjson.Result) []FoodItem {
	if !arr.IsArray() {
		return []FoodItem{}
	}
	elems := arr.Array()
	items := make([]FoodItem, 0, len(elems))
	for idx, el := range elems {
		items = append(items, normalizeItem(idx, el))
	}
	return items
}

func normalizeItem(idx int, el gjson.Result) FoodItem {
	item := FoodItem{
		ID:   fmt.Sprintf("%s-%d", ItemIDPrefix, idx),
		Name: DefaultItemName,
	}
	if name, ok := scalarString(el.Get("name")); ok && name != "" {
		item.Name = name
	}

	q := el.Get("quantity")
	value, hasValue := scalarString(q.Get("value"))
	unit, hasUnit := scalarString(q.Get("unit"))
	if hasValue && hasUnit {
		item.Quantity = value + " " + unit
	}

	macros := el.Get("macros")
	item.Calories = ReadNumber(macros.Get("calories")).Or(0)
	for _, f := range nutrientFields {
		*f.get(&item.Macros) = ReadNumber(macros.Get(f.key)).Or(0)
	}
	return item
}

// scalarString renders a string, number or true value as text.
// Missing, null, false and composite values report ok=false.
func scalarString(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		return r.Str, true
	case gjson.Number:
		return strconv.FormatFloat(r.Num, 'f', -1, 64), true
	case gjson.True:
		return "true", true
	default:
		return "", false
	}
}
