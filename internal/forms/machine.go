package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/common/validation"
)

var (
	ErrStepInvalid      = errors.New("current step does not validate")
	ErrStepOutOfRange   = errors.New("step out of range")
	ErrAlreadySubmitted = errors.New("form already submitted")
	ErrUnknownField     = errors.New("unknown field")
	ErrFieldKind        = errors.New("field kind does not accept this input")
	ErrNoSubmitter      = errors.New("no submitter configured")
)

// Submitter delivers a completed form.
type Submitter interface {
	Submit(ctx context.Context, sub *Submission) (*Result, error)
}

// StepError carries the validation result that blocked a transition.
type StepError struct {
	Step   Step
	Result *validation.ValidationResult
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d invalid: %s", e.Step, strings.Join(e.Result.GetErrorMessages(), "; "))
}

func (e *StepError) Unwrap() error { return ErrStepInvalid }

// Machine tracks one visitor's progress through a form definition.
type Machine struct {
	mu        sync.Mutex
	def       Definition
	submitter Submitter
	logger    logger.Logger

	current     Step
	state       State
	submitted   bool
	delivered   bool
	result      *Result
	submitErr   error
	submittedAt time.Time
	now         func() time.Time
}

func NewMachine(def Definition, submitter Submitter, log logger.Logger) *Machine {
	return &Machine{
		def:       def,
		submitter: submitter,
		logger:    logger.Component(log, "forms").WithFields(map[string]interface{}{"form": def.Name}),
		state:     newState(),
		now:       time.Now,
	}
}

func (m *Machine) Definition() Definition { return m.def }

// Set stores a single-valued field.
func (m *Machine) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(name, value)
}

func (m *Machine) set(name, value string) error {
	f, _, ok := m.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind == KindMultiSelect || f.Kind == KindFile {
		return fmt.Errorf("%w: %s is %s", ErrFieldKind, name, f.Kind)
	}
	m.state.Values[name] = value
	return nil
}

// Select replaces the selections of a multiselect field.
func (m *Machine) Select(name string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sel(name, values)
}

func (m *Machine) sel(name string, values []string) error {
	f, _, ok := m.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind != KindMultiSelect {
		return fmt.Errorf("%w: %s is %s", ErrFieldKind, name, f.Kind)
	}
	m.state.Selections[name] = append([]string(nil), values...)
	return nil
}

// Attach stores a file for a file field.
func (m *Machine) Attach(name string, file File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, _, ok := m.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind != KindFile {
		return fmt.Errorf("%w: %s is %s", ErrFieldKind, name, f.Kind)
	}
	m.state.Files[name] = file
	return nil
}

// Apply sets every value and selection, reporting all rejected fields.
func (m *Machine) Apply(values map[string]string, selections map[string][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for name, v := range values {
		if err := m.set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	for name, v := range selections {
		if err := m.sel(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Current() StepDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.Steps[m.current]
}

func (m *Machine) Index() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) IsLast() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == m.def.Last()
}

// ValidateStep checks the fields declared by step against the current state.
func (m *Machine) ValidateStep(step Step) *validation.ValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(step)
}

func (m *Machine) validate(step Step) *validation.ValidationResult {
	if !m.def.valid(step) {
		return &validation.ValidationResult{Errors: []validation.ValidationError{{
			Field: "step", Message: ErrStepOutOfRange.Error(), Code: "STEP_OUT_OF_RANGE",
		}}}
	}

	schema := validation.JSONSchema{
		Type:                 "object",
		Properties:           map[string]validation.Property{},
		AdditionalProperties: false,
	}
	input := map[string]interface{}{}
	var fileErrs []validation.ValidationError

	for _, f := range m.def.Steps[step].Fields {
		if f.Kind == KindFile {
			if _, ok := m.state.Files[f.Name]; f.Required && !ok {
				fileErrs = append(fileErrs, validation.ValidationError{
					Field: f.Name, Message: "required field missing", Code: "REQUIRED_FIELD_MISSING",
				})
			}
			continue
		}

		schema.Properties[f.Name] = fieldProperty(f)
		if f.Required || f.MinSelections > 0 {
			schema.Required = append(schema.Required, f.Name)
		}

		if f.Kind == KindMultiSelect {
			if sel, ok := m.state.Selections[f.Name]; ok {
				items := make([]interface{}, len(sel))
				for i, s := range sel {
					items[i] = s
				}
				input[f.Name] = items
			}
			continue
		}
		if v, ok := m.state.Values[f.Name]; ok {
			input[f.Name] = v
		}
	}

	result := validation.ValidateInput(input, schema)
	if len(fileErrs) > 0 {
		result.Errors = append(result.Errors, fileErrs...)
		result.Valid = false
	}
	return result
}

func fieldProperty(f Field) validation.Property {
	p := validation.Property{Type: "string"}
	if f.MinLength > 0 {
		p.MinLength = validation.IntPtr(f.MinLength)
	}
	switch f.Kind {
	case KindEmail:
		p.Format = "email"
	case KindPhone:
		p.Format = "phone"
	case KindURL:
		p.Format = "uri"
	case KindSelect:
		p.Enum = f.Options
	case KindMultiSelect:
		p = validation.Property{
			Type:  "array",
			Items: &validation.Property{Type: "string", Enum: f.Options},
		}
		if f.MinSelections > 0 {
			p.MinItems = validation.IntPtr(f.MinSelections)
		}
	}
	return p
}

// CanAdvance reports whether the current step validates.
func (m *Machine) CanAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(m.current).Valid
}

// Next moves to the following step. It fails with a *StepError wrapping
// ErrStepInvalid when the current step does not validate.
func (m *Machine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == m.def.Last() {
		return ErrStepOutOfRange
	}
	result := m.validate(m.current)
	stepName := m.def.Steps[m.current].Name
	if !result.Valid {
		metrics.StepValidations.WithLabelValues(m.def.Name, stepName, "invalid").Inc()
		return &StepError{Step: m.current, Result: result}
	}
	metrics.StepValidations.WithLabelValues(m.def.Name, stepName, "valid").Inc()
	m.current++
	return nil
}

// Back moves to the previous step; it is a no-op on the first step.
func (m *Machine) Back() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current > 0 {
		m.current--
	}
}

// GoTo jumps to step. Moving forward requires every earlier step to validate.
func (m *Machine) GoTo(step Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.def.valid(step) {
		return ErrStepOutOfRange
	}
	if err := m.reachable(step); err != nil {
		return err
	}
	m.current = step
	return nil
}

func (m *Machine) reachable(step Step) error {
	for s := Step(0); s < step; s++ {
		if result := m.validate(s); !result.Valid {
			return &StepError{Step: s, Result: result}
		}
	}
	return nil
}

// Reachable lists every step the visitor could move to right now.
func (m *Machine) Reachable() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps := []Step{}
	for s := Step(0); s <= m.def.Last(); s++ {
		steps = append(steps, s)
		if !m.validate(s).Valid {
			break
		}
	}
	return steps
}

// CanSubmit is true only on the last step with every step valid.
func (m *Machine) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canSubmit() == nil
}

func (m *Machine) canSubmit() error {
	if m.submitted {
		return ErrAlreadySubmitted
	}
	if m.current != m.def.Last() {
		return fmt.Errorf("%w: submit is only available on the last step", ErrStepInvalid)
	}
	return m.reachable(m.def.Last() + 1)
}

// Submit hands the accumulated state to the submitter. A failed delivery
// still marks the form submitted when the definition opts into SoftSuccess;
// the returned Result then reports Delivered=false.
func (m *Machine) Submit(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.canSubmit(); err != nil {
		return nil, err
	}
	if m.submitter == nil {
		return nil, ErrNoSubmitter
	}

	sub := m.submission()
	res, err := m.submitter.Submit(ctx, sub)
	if err == nil && res != nil && res.Delivered {
		m.finish(sub, res, nil)
		metrics.FormSubmissions.WithLabelValues(m.def.Name, "delivered").Inc()
		m.logger.Info("form submitted", map[string]interface{}{
			"submissionId": res.SubmissionID,
			"statusCode":   res.StatusCode,
		})
		return res, nil
	}
	if err == nil {
		err = fmt.Errorf("submission was not delivered")
	}

	if !m.def.SoftSuccess {
		metrics.FormSubmissions.WithLabelValues(m.def.Name, "failed").Inc()
		m.logger.Error("form submission failed", map[string]interface{}{"error": err})
		return nil, err
	}

	soft := &Result{Delivered: false}
	if res != nil {
		soft.SubmissionID = res.SubmissionID
		soft.StatusCode = res.StatusCode
		soft.Response = res.Response
	}
	m.finish(sub, soft, err)
	metrics.FormSubmissions.WithLabelValues(m.def.Name, "soft_failed").Inc()
	m.logger.Warn("form delivery failed, showing confirmation anyway", map[string]interface{}{
		"submissionId": soft.SubmissionID,
		"error":        err,
	})
	return soft, nil
}

func (m *Machine) submission() *Submission {
	sub := &Submission{
		Form:        m.def.Name,
		Encoding:    m.def.Encoding,
		Values:      make(map[string]string, len(m.state.Values)),
		Selections:  make(map[string][]string, len(m.state.Selections)),
		Files:       make(map[string]File, len(m.state.Files)),
		SubmittedAt: m.now().UTC(),
	}
	for k, v := range m.state.Values {
		if strings.TrimSpace(v) != "" {
			sub.Values[k] = strings.TrimSpace(v)
		}
	}
	for k, v := range m.state.Selections {
		if len(v) > 0 {
			sub.Selections[k] = append([]string(nil), v...)
		}
	}
	for k, v := range m.state.Files {
		sub.Files[k] = v
	}
	return sub
}

func (m *Machine) finish(sub *Submission, res *Result, err error) {
	m.submitted = true
	m.delivered = res.Delivered
	m.result = res
	m.submitErr = err
	m.submittedAt = sub.SubmittedAt
}

func (m *Machine) Submitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

// DeliveryError is the error hidden behind a soft-success confirmation.
func (m *Machine) DeliveryError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitErr
}

// Countdown is a pending redirect shown on the confirmation view.
type Countdown struct {
	URL      string    `json:"url"`
	Deadline time.Time `json:"deadline"`
}

// Remaining is the time left before the redirect, never negative.
func (c Countdown) Remaining(now time.Time) time.Duration {
	if d := c.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (c Countdown) Expired(now time.Time) bool {
	return !now.Before(c.Deadline)
}

// Confirmation is the view shown once a form has been submitted.
type Confirmation struct {
	Form         string     `json:"form"`
	Submitted    bool       `json:"submitted"`
	Delivered    bool       `json:"delivered"`
	SubmissionID string     `json:"submissionId,omitempty"`
	Message      string     `json:"message"`
	Countdown    *Countdown `json:"countdown,omitempty"`
	RedirectIn   int        `json:"redirectIn,omitempty"` // seconds
}

// Confirmation describes the submitted view as of now.
func (m *Machine) Confirmation(now time.Time) Confirmation {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := Confirmation{
		Form:      m.def.Name,
		Submitted: m.submitted,
		Delivered: m.delivered,
	}
	if !m.submitted {
		return c
	}
	c.Message = m.def.SuccessMessage
	if m.result != nil {
		c.SubmissionID = m.result.SubmissionID
	}
	if r := m.def.Redirect; r != nil && r.URL != "" {
		cd := Countdown{URL: r.URL, Deadline: m.submittedAt.Add(r.After)}
		c.Countdown = &cd
		c.RedirectIn = int((cd.Remaining(now) + time.Second - 1) / time.Second)
	}
	return c
}
