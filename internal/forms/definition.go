// Package forms implements the multi-step lead-capture form machine and the
// built-in form definitions.
package forms

import (
	"encoding/json"
	"time"
)

// Step identifies a step within a form definition. Steps are numbered from zero.
type Step int

type FieldKind string

const (
	KindText        FieldKind = "text"
	KindEmail       FieldKind = "email"
	KindPhone       FieldKind = "phone"
	KindTextarea    FieldKind = "textarea"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
	KindFile        FieldKind = "file"
	KindURL         FieldKind = "url"
)

type Encoding string

const (
	EncodingJSON      Encoding = "json"
	EncodingMultipart Encoding = "multipart"
)

type Field struct {
	Name          string    `json:"name"`
	Label         string    `json:"label"`
	Kind          FieldKind `json:"kind"`
	Required      bool      `json:"required"`
	MinLength     int       `json:"minLength,omitempty"`
	MinSelections int       `json:"minSelections,omitempty"`
	Options       []string  `json:"options,omitempty"`
	Placeholder   string    `json:"placeholder,omitempty"`
}

type StepDef struct {
	ID     Step    `json:"id"`
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Redirect sends the visitor elsewhere After the confirmation is shown.
type Redirect struct {
	URL   string
	After time.Duration
}

func (r Redirect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		URL          string `json:"url"`
		AfterSeconds int    `json:"afterSeconds"`
	}{r.URL, int(r.After / time.Second)})
}

// Definition describes one form: its steps, how it is encoded on the wire and
// what happens after submission.
type Definition struct {
	Name           string    `json:"name"`
	Title          string    `json:"title"`
	Steps          []StepDef `json:"steps"`
	Encoding       Encoding  `json:"encoding"`
	SoftSuccess    bool      `json:"softSuccess"`
	SuccessMessage string    `json:"successMessage"`
	Redirect       *Redirect `json:"redirect,omitempty"`
}

// Field returns the named field and the step declaring it.
func (d Definition) Field(name string) (Field, Step, bool) {
	for _, s := range d.Steps {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, s.ID, true
			}
		}
	}
	return Field{}, 0, false
}

// Last is the final step of the form.
func (d Definition) Last() Step {
	return Step(len(d.Steps) - 1)
}

func (d Definition) valid(step Step) bool {
	return step >= 0 && int(step) < len(d.Steps)
}

// File is an attachment held in form state.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// State is the accumulated input of a form across all steps.
type State struct {
	Values     map[string]string   `json:"values"`
	Selections map[string][]string `json:"selections"`
	Files      map[string]File     `json:"files,omitempty"`
}

func newState() State {
	return State{
		Values:     map[string]string{},
		Selections: map[string][]string{},
		Files:      map[string]File{},
	}
}

// Submission is the payload handed to a Submitter once every step validates.
type Submission struct {
	Form        string              `json:"form"`
	Encoding    Encoding            `json:"-"`
	Values      map[string]string   `json:"values"`
	Selections  map[string][]string `json:"selections"`
	Files       map[string]File     `json:"-"`
	SubmittedAt time.Time           `json:"submittedAt"`
}

// Fields flattens values and selections into the JSON body sent to webhooks.
func (s *Submission) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(s.Values)+len(s.Selections)+2)
	for k, v := range s.Values {
		out[k] = v
	}
	for k, v := range s.Selections {
		out[k] = v
	}
	for k, f := range s.Files {
		out[k] = f.Name
	}
	out["form"] = s.Form
	out["submittedAt"] = s.SubmittedAt.UTC().Format(time.RFC3339)
	return out
}

// Result is what a Submitter reports back.
type Result struct {
	SubmissionID string                 `json:"submissionId"`
	Delivered    bool                   `json:"delivered"`
	StatusCode   int                    `json:"statusCode,omitempty"`
	Response     map[string]interface{} `json:"response,omitempty"`
}
