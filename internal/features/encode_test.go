package features

import (
	"testing"

	"heart-risk/internal/patient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioOne() patient.RawInput {
	return patient.RawInput{
		Age:            45,
		RestingBP:      120,
		Cholesterol:    200,
		MaxHR:          150,
		Oldpeak:        1.0,
		Sex:            patient.SexMale,
		FastingBS:      patient.No,
		ChestPainType:  patient.ChestPainASY,
		ExerciseAngina: patient.No,
		STSlope:        patient.SlopeUp,
		RestingECG:     patient.ECGNormal,
	}
}

func encode(t *testing.T, in patient.RawInput) Vector {
	t.Helper()
	c, err := EncodeCategorical(in)
	require.NoError(t, err)
	return Assemble(NumericOf(in), c).Vector()
}

func TestNumericOf_Order(t *testing.T) {
	got := NumericOf(scenarioOne())
	assert.Equal(t, Numeric{45, 120, 200, 150, 1.0}, got)
}

func TestVector_ScenarioOneTail(t *testing.T) {
	v := encode(t, scenarioOne())

	assert.Len(t, v, Width)
	assert.Equal(t, []float64{45, 120, 200, 150, 1.0}, v[:NumNumeric])
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 1, 0, 0, 0, 1}, v[NumNumeric:])
}

func TestVector_TypicalAnginaDoesNotOverlapAtypical(t *testing.T) {
	in := scenarioOne()
	in.ChestPainType = patient.ChestPainTA
	c, err := EncodeCategorical(in)
	require.NoError(t, err)

	assert.Equal(t, 0.0, c.ChestPainASY)
	assert.Equal(t, 0.0, c.ChestPainNAP)
	assert.Equal(t, 1.0, c.ChestPainTA)
}

func TestEncodeCategorical_OneHotFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*patient.RawInput)
		pick   func(Categorical) []float64
		want   []float64
	}{
		{"chest pain ATA is reference", func(in *patient.RawInput) { in.ChestPainType = patient.ChestPainATA },
			func(c Categorical) []float64 { return []float64{c.ChestPainASY, c.ChestPainNAP, c.ChestPainTA} },
			[]float64{0, 0, 0}},
		{"chest pain ASY", func(in *patient.RawInput) { in.ChestPainType = patient.ChestPainASY },
			func(c Categorical) []float64 { return []float64{c.ChestPainASY, c.ChestPainNAP, c.ChestPainTA} },
			[]float64{1, 0, 0}},
		{"chest pain NAP", func(in *patient.RawInput) { in.ChestPainType = patient.ChestPainNAP },
			func(c Categorical) []float64 { return []float64{c.ChestPainASY, c.ChestPainNAP, c.ChestPainTA} },
			[]float64{0, 1, 0}},
		{"chest pain TA", func(in *patient.RawInput) { in.ChestPainType = patient.ChestPainTA },
			func(c Categorical) []float64 { return []float64{c.ChestPainASY, c.ChestPainNAP, c.ChestPainTA} },
			[]float64{0, 0, 1}},
		{"ecg normal", func(in *patient.RawInput) { in.RestingECG = patient.ECGNormal },
			func(c Categorical) []float64 { return []float64{c.ECGNormal, c.ECGST} },
			[]float64{1, 0}},
		{"ecg ST", func(in *patient.RawInput) { in.RestingECG = patient.ECGST },
			func(c Categorical) []float64 { return []float64{c.ECGNormal, c.ECGST} },
			[]float64{0, 1}},
		{"ecg LVH is reference", func(in *patient.RawInput) { in.RestingECG = patient.ECGLVH },
			func(c Categorical) []float64 { return []float64{c.ECGNormal, c.ECGST} },
			[]float64{0, 0}},
		{"slope up", func(in *patient.RawInput) { in.STSlope = patient.SlopeUp },
			func(c Categorical) []float64 { return []float64{c.SlopeFlat, c.SlopeUp} },
			[]float64{0, 1}},
		{"slope flat", func(in *patient.RawInput) { in.STSlope = patient.SlopeFlat },
			func(c Categorical) []float64 { return []float64{c.SlopeFlat, c.SlopeUp} },
			[]float64{1, 0}},
		{"slope down is reference", func(in *patient.RawInput) { in.STSlope = patient.SlopeDown },
			func(c Categorical) []float64 { return []float64{c.SlopeFlat, c.SlopeUp} },
			[]float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scenarioOne()
			tt.mutate(&in)
			c, err := EncodeCategorical(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.pick(c))
		})
	}
}

func TestEncodeCategorical_BinaryFields(t *testing.T) {
	in := scenarioOne()
	in.Sex = patient.SexFemale
	in.FastingBS = patient.Yes
	in.ExerciseAngina = patient.Yes
	c, err := EncodeCategorical(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Sex)
	assert.Equal(t, 1.0, c.FastingBS)
	assert.Equal(t, 1.0, c.ExerciseAngina)

	in.Sex = patient.SexMale
	in.FastingBS = patient.No
	in.ExerciseAngina = patient.No
	c, err = EncodeCategorical(in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Sex)
	assert.Equal(t, 0.0, c.FastingBS)
	assert.Equal(t, 0.0, c.ExerciseAngina)
}

func TestEncodeCategorical_AtMostOnePerField(t *testing.T) {
	for _, cp := range []patient.ChestPainType{patient.ChestPainATA, patient.ChestPainNAP, patient.ChestPainASY, patient.ChestPainTA} {
		for _, ecg := range []patient.RestingECG{patient.ECGNormal, patient.ECGST, patient.ECGLVH} {
			for _, slope := range []patient.STSlope{patient.SlopeUp, patient.SlopeFlat, patient.SlopeDown} {
				in := scenarioOne()
				in.ChestPainType, in.RestingECG, in.STSlope = cp, ecg, slope
				c, err := EncodeCategorical(in)
				require.NoError(t, err)
				assert.LessOrEqual(t, c.ChestPainASY+c.ChestPainNAP+c.ChestPainTA, 1.0)
				assert.LessOrEqual(t, c.ECGNormal+c.ECGST, 1.0)
				assert.LessOrEqual(t, c.SlopeFlat+c.SlopeUp, 1.0)
			}
		}
	}
}

func TestEncodeCategorical_UndefinedValue(t *testing.T) {
	in := scenarioOne()
	in.RestingECG = 0
	_, err := EncodeCategorical(in)
	assert.ErrorIs(t, err, patient.ErrInvalidInput)
}

func TestEncode_Idempotent(t *testing.T) {
	in := scenarioOne()
	assert.Equal(t, encode(t, in), encode(t, in))
}

func TestVector_NamedFollowsNames(t *testing.T) {
	v := encode(t, scenarioOne())
	named := v.Named()
	require.Len(t, named, Width)
	assert.Equal(t, "Age", named[0].Name)
	assert.Equal(t, 45.0, named[0].Value)
	assert.Equal(t, "chestPainType_ASY", named[7].Name)
	assert.Equal(t, 1.0, named[7].Value)
	assert.Equal(t, "st_Slope_Up", named[14].Name)
	assert.Equal(t, 1.0, named[14].Value)
}

func TestVector_SliceIsCopy(t *testing.T) {
	v := encode(t, scenarioOne())
	s := v.Slice()
	s[0] = -1
	assert.Equal(t, 45.0, v[0])
}
