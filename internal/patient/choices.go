package patient

import (
	"fmt"
	"strings"
)

// Option is one selectable value of a categorical form field.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type choice[T ~int] struct {
	value T
	Option
}

// parseChoice matches s against the code or the full label of each choice.
// Matching is exact (case and surrounding whitespace ignored) so that "TA"
// never resolves to "ATA".
func parseChoice[T ~int](field, s string, choices []choice[T]) (T, error) {
	s = strings.TrimSpace(s)
	for _, c := range choices {
		if strings.EqualFold(s, c.Code) || strings.EqualFold(s, c.Label) {
			return c.value, nil
		}
	}
	codes := make([]string, len(choices))
	for i, c := range choices {
		codes[i] = c.Code
	}
	var zero T
	return zero, &ValidationError{Fields: []FieldError{{
		Field:   field,
		Message: fmt.Sprintf("%q is not one of %s", s, strings.Join(codes, ", ")),
	}}}
}

func lookup[T ~int](v T, choices []choice[T]) (Option, bool) {
	for _, c := range choices {
		if c.value == v {
			return c.Option, true
		}
	}
	return Option{}, false
}

func options[T ~int](choices []choice[T]) []Option {
	out := make([]Option, len(choices))
	for i, c := range choices {
		out[i] = c.Option
	}
	return out
}

// Sex of the patient.
type Sex int

const (
	SexMale Sex = iota + 1
	SexFemale
)

var sexChoices = []choice[Sex]{
	{SexMale, Option{"Male", "Male"}},
	{SexFemale, Option{"Female", "Female"}},
}

// ParseSex accepts "Male" or "Female".
func ParseSex(s string) (Sex, error) { return parseChoice("sex", s, sexChoices) }

func SexOptions() []Option { return options(sexChoices) }

func (s Sex) Valid() bool {
	_, ok := lookup(s, sexChoices)
	return ok
}

func (s Sex) String() string {
	o, _ := lookup(s, sexChoices)
	return o.Label
}

func (s Sex) MarshalText() ([]byte, error) { return marshalChoice("sex", s, sexChoices) }

// YesNo answers a yes/no question such as fasting blood sugar > 120 mg/dl or
// exercise induced angina.
type YesNo int

const (
	Yes YesNo = iota + 1
	No
)

var yesNoChoices = []choice[YesNo]{
	{No, Option{"No", "No"}},
	{Yes, Option{"Yes", "Yes"}},
}

// ParseYesNo accepts "Yes" or "No".
func ParseYesNo(s string) (YesNo, error) { return parseChoice("yes/no", s, yesNoChoices) }

func YesNoOptions() []Option { return options(yesNoChoices) }

func (y YesNo) Valid() bool {
	_, ok := lookup(y, yesNoChoices)
	return ok
}

func (y YesNo) String() string {
	o, _ := lookup(y, yesNoChoices)
	return o.Label
}

func (y YesNo) MarshalText() ([]byte, error) { return marshalChoice("yes/no", y, yesNoChoices) }

// ChestPainType is the reported chest pain category. ATA is the reference
// level of the one-hot encoding.
type ChestPainType int

const (
	ChestPainATA ChestPainType = iota + 1
	ChestPainNAP
	ChestPainASY
	ChestPainTA
)

var chestPainChoices = []choice[ChestPainType]{
	{ChestPainATA, Option{"ATA", "ATA (Atypical Angina)"}},
	{ChestPainNAP, Option{"NAP", "NAP (Non-Anginal Pain)"}},
	{ChestPainASY, Option{"ASY", "ASY (Asymptomatic)"}},
	{ChestPainTA, Option{"TA", "TA (Typical Angina)"}},
}

// ParseChestPainType accepts a code ("TA") or a full label ("TA (Typical Angina)").
func ParseChestPainType(s string) (ChestPainType, error) {
	return parseChoice("chestPainType", s, chestPainChoices)
}

func ChestPainOptions() []Option { return options(chestPainChoices) }

func (c ChestPainType) Valid() bool {
	_, ok := lookup(c, chestPainChoices)
	return ok
}

func (c ChestPainType) String() string {
	o, _ := lookup(c, chestPainChoices)
	return o.Label
}

func (c ChestPainType) MarshalText() ([]byte, error) {
	return marshalChoice("chestPainType", c, chestPainChoices)
}

// RestingECG is the resting electrocardiogram result. LVH is the reference level.
type RestingECG int

const (
	ECGNormal RestingECG = iota + 1
	ECGST
	ECGLVH
)

var restingECGChoices = []choice[RestingECG]{
	{ECGNormal, Option{"Normal", "Normal"}},
	{ECGST, Option{"ST", "ST (ST-T wave abnormality)"}},
	{ECGLVH, Option{"LVH", "LVH (Left Ventricular Hypertrophy)"}},
}

func ParseRestingECG(s string) (RestingECG, error) {
	return parseChoice("restingECG", s, restingECGChoices)
}

func RestingECGOptions() []Option { return options(restingECGChoices) }

func (e RestingECG) Valid() bool {
	_, ok := lookup(e, restingECGChoices)
	return ok
}

func (e RestingECG) String() string {
	o, _ := lookup(e, restingECGChoices)
	return o.Label
}

func (e RestingECG) MarshalText() ([]byte, error) {
	return marshalChoice("restingECG", e, restingECGChoices)
}

// STSlope is the slope of the peak exercise ST segment. Down is the reference level.
type STSlope int

const (
	SlopeUp STSlope = iota + 1
	SlopeFlat
	SlopeDown
)

var stSlopeChoices = []choice[STSlope]{
	{SlopeUp, Option{"Up", "Up"}},
	{SlopeFlat, Option{"Flat", "Flat"}},
	{SlopeDown, Option{"Down", "Down"}},
}

func ParseSTSlope(s string) (STSlope, error) { return parseChoice("stSlope", s, stSlopeChoices) }

func STSlopeOptions() []Option { return options(stSlopeChoices) }

func (s STSlope) Valid() bool {
	_, ok := lookup(s, stSlopeChoices)
	return ok
}

func (s STSlope) String() string {
	o, _ := lookup(s, stSlopeChoices)
	return o.Label
}

func (s STSlope) MarshalText() ([]byte, error) { return marshalChoice("stSlope", s, stSlopeChoices) }

func marshalChoice[T ~int](field string, v T, choices []choice[T]) ([]byte, error) {
	o, ok := lookup(v, choices)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no value", ErrInvalidInput, field)
	}
	return []byte(o.Code), nil
}
