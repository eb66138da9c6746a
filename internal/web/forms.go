package web

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/common/validation"
	"leadcapture/internal/forms"
)

type formInput struct {
	Step       forms.Step          `json:"step"`
	Values     map[string]string   `json:"values"`
	Selections map[string][]string `json:"selections"`
}

type validateResponse struct {
	Step       forms.Step                   `json:"step"`
	Valid      bool                         `json:"valid"`
	Errors     []validation.ValidationError `json:"errors"`
	CanAdvance bool                         `json:"canAdvance"`
	CanSubmit  bool                         `json:"canSubmit"`
	Reachable  []forms.Step                 `json:"reachable"`
}

func (s *Server) lookupForm(c *gin.Context) (forms.Definition, bool) {
	name := c.Param("form")
	def, ok := s.deps.Forms[name]
	if !ok {
		s.fail(c, "forms.lookup", apperrors.NewFormNotFoundError(name))
	}
	return def, ok
}

func (s *Server) listForms(c *gin.Context) {
	names := make([]string, 0, len(s.deps.Forms))
	for name := range s.deps.Forms {
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"forms": names})
}

func (s *Server) getForm(c *gin.Context) {
	def, ok := s.lookupForm(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, def)
}

// inputError turns a rejected field set into a VALIDATION_FAILED error.
func inputError(err error) error {
	if stderrors.Is(err, forms.ErrUnknownField) || stderrors.Is(err, forms.ErrFieldKind) {
		return apperrors.NewValidationFailedError(err.Error())
	}
	return err
}

func stepFailure(err *forms.StepError) error {
	return apperrors.NewValidationFailedError(fmt.Sprintf("step %d is incomplete", err.Step)).
		WithMetadata("step", err.Step).
		WithMetadata("errors", err.Result.Errors)
}

// validateForm evaluates one step of a form against the submitted state
// without keeping anything server-side.
func (s *Server) validateForm(c *gin.Context) {
	def, ok := s.lookupForm(c)
	if !ok {
		return
	}
	var in formInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, "forms.validate", apperrors.NewValidationFailedError(err.Error()))
		return
	}
	if in.Step < 0 || int(in.Step) >= len(def.Steps) {
		s.fail(c, "forms.validate", apperrors.NewValidationFailedError(forms.ErrStepOutOfRange.Error()))
		return
	}

	m := forms.NewMachine(def, nil, s.deps.Logger)
	if err := m.Apply(in.Values, in.Selections); err != nil {
		s.fail(c, "forms.validate", inputError(err))
		return
	}

	result := m.ValidateStep(in.Step)
	resp := validateResponse{
		Step:      in.Step,
		Valid:     result.Valid,
		Errors:    result.Errors,
		Reachable: m.Reachable(),
	}
	if resp.Errors == nil {
		resp.Errors = []validation.ValidationError{}
	}
	if m.GoTo(in.Step) == nil {
		resp.CanAdvance = result.Valid
	}
	if m.GoTo(def.Last()) == nil {
		resp.CanSubmit = m.CanSubmit()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submitForm(c *gin.Context) {
	def, ok := s.lookupForm(c)
	if !ok {
		return
	}
	if s.deps.Submitter == nil {
		s.unavailable(c, "Form delivery")
		return
	}

	m := forms.NewMachine(def, s.deps.Submitter, s.deps.Logger)
	if err := s.bindSubmission(c, def, m); err != nil {
		s.fail(c, "forms.submit", inputError(err))
		return
	}

	if err := m.GoTo(def.Last()); err != nil {
		s.formError(c, "forms.submit", err)
		return
	}
	if _, err := m.Submit(c.Request.Context()); err != nil {
		s.formError(c, "forms.submit", err)
		return
	}
	c.JSON(http.StatusOK, m.Confirmation(s.now()))
}

func (s *Server) formError(c *gin.Context, operation string, err error) {
	var stepErr *forms.StepError
	if stderrors.As(err, &stepErr) {
		err = stepFailure(stepErr)
	}
	s.fail(c, operation, err)
}

// bindSubmission reads a JSON body or a multipart form into m.
func (s *Server) bindSubmission(c *gin.Context, def forms.Definition, m *forms.Machine) error {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var in formInput
		if err := c.ShouldBindJSON(&in); err != nil {
			return apperrors.NewValidationFailedError(err.Error())
		}
		return m.Apply(in.Values, in.Selections)
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("invalid multipart body: %v", err))
	}

	var errs []error
	for _, step := range def.Steps {
		for _, f := range step.Fields {
			switch f.Kind {
			case forms.KindFile:
				headers := form.File[f.Name]
				if len(headers) == 0 {
					continue
				}
				file, err := readFile(headers[0].Filename, headers[0].Header.Get("Content-Type"), func() (io.ReadCloser, error) {
					return headers[0].Open()
				})
				if err != nil {
					errs = append(errs, err)
					continue
				}
				errs = append(errs, m.Attach(f.Name, file))
			case forms.KindMultiSelect:
				if values, ok := form.Value[f.Name]; ok {
					errs = append(errs, m.Select(f.Name, values...))
				}
			default:
				if values, ok := form.Value[f.Name]; ok && len(values) > 0 {
					errs = append(errs, m.Set(f.Name, values[0]))
				}
			}
		}
	}
	return stderrors.Join(errs...)
}

func readFile(name, contentType string, open func() (io.ReadCloser, error)) (forms.File, error) {
	rc, err := open()
	if err != nil {
		return forms.File{}, apperrors.NewValidationFailedError(fmt.Sprintf("unreadable upload %s: %v", name, err))
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return forms.File{}, apperrors.NewValidationFailedError(fmt.Sprintf("unreadable upload %s: %v", name, err))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return forms.File{Name: name, ContentType: contentType, Data: data}, nil
}
