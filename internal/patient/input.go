// Package patient defines the values a clinician enters on the heart disease
// risk form and the checks applied to them before they reach the encoder.
package patient

// RawInput is one form submission. It is never stored.
type RawInput struct {
	Age            int           `json:"age" validate:"min=1,max=120"`
	RestingBP      int           `json:"restingBP" validate:"min=0,max=300"`
	Cholesterol    int           `json:"cholesterol" validate:"min=0,max=1000"`
	MaxHR          int           `json:"maxHR" validate:"min=1,max=250"`
	Oldpeak        float64       `json:"oldpeak" validate:"min=-10,max=10"`
	Sex            Sex           `json:"sex" validate:"enum"`
	FastingBS      YesNo         `json:"fastingBS" validate:"enum"`
	ChestPainType  ChestPainType `json:"chestPainType" validate:"enum"`
	ExerciseAngina YesNo         `json:"exerciseAngina" validate:"enum"`
	STSlope        STSlope       `json:"stSlope" validate:"enum"`
	RestingECG     RestingECG    `json:"restingECG" validate:"enum"`
}

// Defaults returns the values the form is pre-filled with.
func Defaults() RawInput {
	return RawInput{
		Age:            45,
		RestingBP:      120,
		Cholesterol:    200,
		MaxHR:          150,
		Oldpeak:        1.0,
		Sex:            SexMale,
		FastingBS:      No,
		ChestPainType:  ChestPainATA,
		ExerciseAngina: No,
		STSlope:        SlopeUp,
		RestingECG:     ECGNormal,
	}
}

// Fields is a submission as it arrives from a form or a JSON client:
// numbers already parsed, categorical answers as codes or display labels.
type Fields struct {
	Age            int     `json:"age"`
	RestingBP      int     `json:"restingBP"`
	Cholesterol    int     `json:"cholesterol"`
	MaxHR          int     `json:"maxHR"`
	Oldpeak        float64 `json:"oldpeak"`
	Sex            string  `json:"sex"`
	FastingBS      string  `json:"fastingBS"`
	ChestPainType  string  `json:"chestPainType"`
	ExerciseAngina string  `json:"exerciseAngina"`
	STSlope        string  `json:"stSlope"`
	RestingECG     string  `json:"restingECG"`
}

// Input resolves the categorical answers and validates the result. All
// problems are reported together in a *ValidationError.
func (f Fields) Input() (RawInput, error) {
	in := RawInput{
		Age:         f.Age,
		RestingBP:   f.RestingBP,
		Cholesterol: f.Cholesterol,
		MaxHR:       f.MaxHR,
		Oldpeak:     f.Oldpeak,
	}

	var verr ValidationError
	collect := func(err error) {
		if ve, ok := err.(*ValidationError); ok {
			verr.Fields = append(verr.Fields, ve.Fields...)
		}
	}

	var err error
	in.Sex, err = parseChoice("sex", f.Sex, sexChoices)
	collect(err)
	in.FastingBS, err = parseChoice("fastingBS", f.FastingBS, yesNoChoices)
	collect(err)
	in.ChestPainType, err = parseChoice("chestPainType", f.ChestPainType, chestPainChoices)
	collect(err)
	in.ExerciseAngina, err = parseChoice("exerciseAngina", f.ExerciseAngina, yesNoChoices)
	collect(err)
	in.STSlope, err = parseChoice("stSlope", f.STSlope, stSlopeChoices)
	collect(err)
	in.RestingECG, err = parseChoice("restingECG", f.RestingECG, restingECGChoices)
	collect(err)

	if err := Validate(in); err != nil {
		collect(err)
	}
	if len(verr.Fields) > 0 {
		return RawInput{}, verr.dedupe()
	}
	return in, nil
}

// Fields converts the input back to its form representation.
func (in RawInput) Fields() Fields {
	return Fields{
		Age:            in.Age,
		RestingBP:      in.RestingBP,
		Cholesterol:    in.Cholesterol,
		MaxHR:          in.MaxHR,
		Oldpeak:        in.Oldpeak,
		Sex:            in.Sex.String(),
		FastingBS:      in.FastingBS.String(),
		ChestPainType:  in.ChestPainType.String(),
		ExerciseAngina: in.ExerciseAngina.String(),
		STSlope:        in.STSlope.String(),
		RestingECG:     in.RestingECG.String(),
	}
}
