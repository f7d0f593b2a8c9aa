package webform

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"heart-risk/internal/ml"
	"heart-risk/internal/patient"

	"github.com/rs/zerolog/log"
)

type numberField struct {
	Name, Label string
	Value       string
	Min, Max    string
	Step        string
}

type selectField struct {
	Name, Label string
	Value       string
	Options     []patient.Option
}

// Selected reports whether o is the current value, by code or label.
func (f selectField) Selected(o patient.Option) bool {
	return strings.EqualFold(f.Value, o.Code) || f.Value == o.Label
}

type formView struct {
	Vitals    []numberField
	History   []selectField
	Errors    map[string]string
	Result    *resultView
	Failure   string
	RequestID string
}

type resultView struct {
	High    bool
	Message string
}

func newFormView(f patient.Fields, raw map[string]string) formView {
	num := func(name string, v string) string {
		if s, ok := raw[name]; ok {
			return s
		}
		return v
	}
	return formView{
		Vitals: []numberField{
			{Name: "age", Label: "Age", Value: num("age", strconv.Itoa(f.Age)), Min: "1", Max: "120", Step: "1"},
			{Name: "restingBP", Label: "Resting Blood Pressure", Value: num("restingBP", strconv.Itoa(f.RestingBP)), Step: "1"},
			{Name: "cholesterol", Label: "Cholesterol", Value: num("cholesterol", strconv.Itoa(f.Cholesterol)), Step: "1"},
			{Name: "maxHR", Label: "Max Heart Rate", Value: num("maxHR", strconv.Itoa(f.MaxHR)), Step: "1"},
			{Name: "oldpeak", Label: "Oldpeak (ST depression)", Value: num("oldpeak", strconv.FormatFloat(f.Oldpeak, 'f', -1, 64)), Step: "0.1"},
		},
		History: []selectField{
			{Name: "sex", Label: "Sex", Value: f.Sex, Options: patient.SexOptions()},
			{Name: "fastingBS", Label: "Fasting Blood Sugar > 120 mg/dl", Value: f.FastingBS, Options: patient.YesNoOptions()},
			{Name: "chestPainType", Label: "Chest Pain Type", Value: f.ChestPainType, Options: patient.ChestPainOptions()},
			{Name: "exerciseAngina", Label: "Exercise Induced Angina", Value: f.ExerciseAngina, Options: patient.YesNoOptions()},
			{Name: "stSlope", Label: "ST Slope", Value: f.STSlope, Options: patient.STSlopeOptions()},
			{Name: "restingECG", Label: "Resting ECG Results", Value: f.RestingECG, Options: patient.RestingECGOptions()},
		},
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	view := newFormView(patient.Defaults().Fields(), nil)
	view.RequestID = RequestID(r.Context())
	s.render(w, http.StatusOK, view)
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.metrics.InvalidInputInc()
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	fields, raw, numErrs := parseFormFields(r)
	view := newFormView(fields, raw)
	view.RequestID = RequestID(r.Context())

	in, err := fields.Input()
	if err != nil || len(numErrs) > 0 {
		s.metrics.InvalidInputInc()
		view.Errors = mergeErrors(err, numErrs)
		s.render(w, http.StatusBadRequest, view)
		return
	}

	res, err := s.predictor.Predict(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		if ml.FailureKind(err) == ml.FailureInvalidInput {
			status = http.StatusBadRequest
			view.Errors = mergeErrors(err, nil)
		} else {
			log.Error().Err(err).Str("request_id", view.RequestID).Msg("Form prediction failed")
			view.Failure = "The prediction could not be made. Please try again later."
		}
		s.render(w, status, view)
		return
	}

	view.Result = &resultView{High: res.Risk == ml.HighRisk, Message: res.Risk.Message()}
	s.render(w, http.StatusOK, view)
}

// parseFormFields reads the submitted values. Numbers that do not parse are
// reported by field and left at zero; the raw text is kept for re-rendering.
func parseFormFields(r *http.Request) (patient.Fields, map[string]string, map[string]string) {
	raw := make(map[string]string)
	errs := make(map[string]string)

	intField := func(name string) int {
		v := strings.TrimSpace(r.PostFormValue(name))
		raw[name] = v
		n, err := strconv.Atoi(v)
		if err != nil {
			errs[name] = "must be a whole number"
		}
		return n
	}

	f := patient.Fields{
		Age:            intField("age"),
		RestingBP:      intField("restingBP"),
		Cholesterol:    intField("cholesterol"),
		MaxHR:          intField("maxHR"),
		Sex:            r.PostFormValue("sex"),
		FastingBS:      r.PostFormValue("fastingBS"),
		ChestPainType:  r.PostFormValue("chestPainType"),
		ExerciseAngina: r.PostFormValue("exerciseAngina"),
		STSlope:        r.PostFormValue("stSlope"),
		RestingECG:     r.PostFormValue("restingECG"),
	}

	oldpeak := strings.TrimSpace(r.PostFormValue("oldpeak"))
	raw["oldpeak"] = oldpeak
	if v, err := strconv.ParseFloat(oldpeak, 64); err != nil {
		errs["oldpeak"] = "must be a number"
	} else {
		f.Oldpeak = v
	}

	return f, raw, errs
}

// mergeErrors prefers the parse error for a field over range errors caused
// by the zero value it was left at.
func mergeErrors(err error, numErrs map[string]string) map[string]string {
	out := make(map[string]string)
	var verr *patient.ValidationError
	if errors.As(err, &verr) {
		for field, msg := range verr.Messages() {
			out[field] = msg
		}
	} else if err != nil {
		out["form"] = err.Error()
	}
	for field, msg := range numErrs {
		out[field] = msg
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, status int, view formView) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		log.Error().Err(err).Msg("Failed to render form")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Heart Disease Prediction</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; background: #f5f5f5; }
        .container { max-width: 720px; margin: 0 auto; padding: 20px; }
        .card { background: white; border-radius: 10px; padding: 20px; margin-bottom: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        .card h2 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        label { display: block; font-weight: 500; color: #555; margin: 12px 0 4px; }
        input, select { width: 100%; padding: 8px; border: 1px solid #ccc; border-radius: 6px; box-sizing: border-box; }
        .field-error { color: #c0392b; font-size: 0.9em; }
        button { background: #e74c3c; color: white; border: none; padding: 12px 28px; border-radius: 6px; font-size: 1em; cursor: pointer; }
        .banner { padding: 16px; border-radius: 8px; font-weight: bold; font-size: 1.2em; margin-bottom: 20px; }
        .high { background: #fdecea; color: #c0392b; border: 1px solid #e74c3c; }
        .low { background: #e8f8ef; color: #1e8449; border: 1px solid #27ae60; }
        .failure { background: #fff4e5; color: #a04000; border: 1px solid #e67e22; }
    </style>
</head>
<body>
<div class="container">
    <h1>&#10084;&#65039; Heart Disease Prediction App</h1>
    {{if .Result}}
        {{if .Result.High}}<div class="banner high">&#9888;&#65039; {{.Result.Message}}</div>
        {{else}}<div class="banner low">&#9989; {{.Result.Message}}</div>{{end}}
    {{end}}
    {{if .Failure}}<div class="banner failure">{{.Failure}}</div>{{end}}
    {{with index .Errors "form"}}<div class="banner failure">{{.}}</div>{{end}}
    <form method="POST" action="/">
        <div class="card">
            <h2>Patient Vitals</h2>
            {{range .Vitals}}
            <label for="{{.Name}}">{{.Label}}</label>
            <input type="number" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}" step="{{.Step}}"{{if .Min}} min="{{.Min}}"{{end}}{{if .Max}} max="{{.Max}}"{{end}}>
            {{with index $.Errors .Name}}<div class="field-error">{{.}}</div>{{end}}
            {{end}}
        </div>
        <div class="card">
            <h2>Medical History</h2>
            {{range $f := .History}}
            <label for="{{$f.Name}}">{{$f.Label}}</label>
            <select id="{{$f.Name}}" name="{{$f.Name}}">
                {{range $f.Options}}<option value="{{.Code}}"{{if $f.Selected .}} selected{{end}}>{{.Label}}</option>
                {{end}}
            </select>
            {{with index $.Errors $f.Name}}<div class="field-error">{{.}}</div>{{end}}
            {{end}}
        </div>
        <button type="submit">Predict</button>
    </form>
</div>
</body>
</html>
`))
