// Package features turns a patient submission into the feature vector the
// heart disease classifier was trained on.
package features

import (
	"fmt"

	"heart-risk/internal/patient"
)

const (
	NumNumeric = 5  // columns passed through the scaler
	Width      = 15 // columns passed to the classifier
)

// NumericNames is the column order the scaler was fitted with.
var NumericNames = [NumNumeric]string{"Age", "RestingBP", "Cholesterol", "MaxHR", "Oldpeak"}

// Names is the training column order of the classifier input.
var Names = [Width]string{
	"Age", "RestingBP", "Cholesterol", "MaxHR", "Oldpeak",
	"fastingBS",
	"sex",
	"chestPainType_ASY", "chestPainType_NAP", "chestPainType_TA",
	"restingECG_Normal", "restingECG_ST",
	"exerciseAngina_YES",
	"st_Slope_Flat", "st_Slope_Up",
}

// Numeric holds the continuous fields in NumericNames order.
type Numeric [NumNumeric]float64

func NumericOf(in patient.RawInput) Numeric {
	return Numeric{
		float64(in.Age),
		float64(in.RestingBP),
		float64(in.Cholesterol),
		float64(in.MaxHR),
		in.Oldpeak,
	}
}

// Categorical holds the one-hot and binary columns. Reference levels
// (ATA chest pain, LVH resting ECG, Down slope) have no column and encode as
// all zeros for their field.
type Categorical struct {
	FastingBS      float64
	Sex            float64
	ChestPainASY   float64
	ChestPainNAP   float64
	ChestPainTA    float64
	ECGNormal      float64
	ECGST          float64
	ExerciseAngina float64
	SlopeFlat      float64
	SlopeUp        float64
}

func EncodeCategorical(in patient.RawInput) (Categorical, error) {
	var c Categorical

	switch in.Sex {
	case patient.SexMale:
		c.Sex = 1
	case patient.SexFemale:
	default:
		return Categorical{}, unknown("sex", int(in.Sex))
	}

	switch in.FastingBS {
	case patient.Yes:
		c.FastingBS = 1
	case patient.No:
	default:
		return Categorical{}, unknown("fastingBS", int(in.FastingBS))
	}

	switch in.ChestPainType {
	case patient.ChestPainASY:
		c.ChestPainASY = 1
	case patient.ChestPainNAP:
		c.ChestPainNAP = 1
	case patient.ChestPainTA:
		c.ChestPainTA = 1
	case patient.ChestPainATA:
	default:
		return Categorical{}, unknown("chestPainType", int(in.ChestPainType))
	}

	switch in.RestingECG {
	case patient.ECGNormal:
		c.ECGNormal = 1
	case patient.ECGST:
		c.ECGST = 1
	case patient.ECGLVH:
	default:
		return Categorical{}, unknown("restingECG", int(in.RestingECG))
	}

	switch in.ExerciseAngina {
	case patient.Yes:
		c.ExerciseAngina = 1
	case patient.No:
	default:
		return Categorical{}, unknown("exerciseAngina", int(in.ExerciseAngina))
	}

	switch in.STSlope {
	case patient.SlopeFlat:
		c.SlopeFlat = 1
	case patient.SlopeUp:
		c.SlopeUp = 1
	case patient.SlopeDown:
	default:
		return Categorical{}, unknown("stSlope", int(in.STSlope))
	}

	return c, nil
}

func unknown(field string, v int) error {
	return fmt.Errorf("%w: %s has undefined value %d", patient.ErrInvalidInput, field, v)
}

// Encoded is the classifier input with every column named. It only becomes
// positional through Vector.
type Encoded struct {
	ScaledAge         float64
	ScaledRestingBP   float64
	ScaledCholesterol float64
	ScaledMaxHR       float64
	ScaledOldpeak     float64
	Categorical
}

func Assemble(scaled Numeric, c Categorical) Encoded {
	return Encoded{
		ScaledAge:         scaled[0],
		ScaledRestingBP:   scaled[1],
		ScaledCholesterol: scaled[2],
		ScaledMaxHR:       scaled[3],
		ScaledOldpeak:     scaled[4],
		Categorical:       c,
	}
}

// Vector is the classifier input in Names order.
type Vector [Width]float64

func (e Encoded) Vector() Vector {
	return Vector{
		e.ScaledAge, e.ScaledRestingBP, e.ScaledCholesterol, e.ScaledMaxHR, e.ScaledOldpeak,
		e.FastingBS,
		e.Sex,
		e.ChestPainASY, e.ChestPainNAP, e.ChestPainTA,
		e.ECGNormal, e.ECGST,
		e.ExerciseAngina,
		e.SlopeFlat, e.SlopeUp,
	}
}

func (v Vector) Slice() []float64 {
	out := make([]float64, Width)
	copy(out, v[:])
	return out
}

// Named pairs each value with its training column name.
type Named struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (v Vector) Named() []Named {
	out := make([]Named, Width)
	for i, name := range Names {
		out[i] = Named{Name: name, Value: v[i]}
	}
	return out
}
