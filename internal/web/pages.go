package web

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leadcapture/internal/forms"
	"leadcapture/internal/landing"
	"leadcapture/pkg/registry"
)

type contentPage struct {
	Title   string
	Heading string
	Intro   string
	Form    string
}

var contentPages = map[string]contentPage{
	"/": {
		Title:   "Home",
		Heading: "Automation that answers every lead",
		Intro:   "Voice agents, instant follow-up and CRM workflows that run while you sleep.",
		Form:    forms.Contact,
	},
	"/demo": {
		Title:   "Book a demo",
		Heading: "See it work on your own leads",
		Intro:   "Tell us a little about your business and we'll tailor a live walkthrough.",
		Form:    forms.Demo,
	},
	"/services": {
		Title:   "Services",
		Heading: "Custom automation, built for your workflow",
		Intro:   "Share your use case and any supporting material for a custom demo.",
		Form:    forms.CustomDemo,
	},
	"/consultation": {
		Title:   "Consultation",
		Heading: "A free automation consultation",
		Intro:   "Four short steps so we arrive with a plan, not questions.",
		Form:    forms.Consultation,
	},
	"/contact": {
		Title:   "Contact",
		Heading: "Get in touch",
		Intro:   "We reply within one business day.",
		Form:    forms.Contact,
	},
}

const sessionCookie = "sid"

func (s *Server) view(title string, extra gin.H) gin.H {
	data := gin.H{
		"Title":    title,
		"SiteName": s.deps.SiteName,
		"Year":     s.now().Year(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func (s *Server) formDefinition(name string) *forms.Definition {
	def, ok := s.deps.Forms[name]
	if !ok {
		return nil
	}
	return &def
}

func (s *Server) contentPage(c *gin.Context) {
	page := contentPages[c.FullPath()]
	s.trackPageView(c)
	c.HTML(http.StatusOK, "page.html", s.view(page.Title, gin.H{
		"Heading": page.Heading,
		"Intro":   page.Intro,
		"Form":    s.formDefinition(page.Form),
	}))
}

// landingPage serves /:slug for GET requests and 404s everything else.
func (s *Server) landingPage(c *gin.Context) {
	if isAPI(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "No such endpoint"})
		return
	}

	slug := strings.Trim(c.Request.URL.Path, "/")
	if c.Request.Method != http.MethodGet || s.deps.Landing == nil || !registry.ValidSlug(slug) {
		s.notFound(c)
		return
	}

	page, err := s.deps.Landing.Get(c.Request.Context(), slug)
	if stderrors.Is(err, landing.ErrPageNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.logger.Error("landing page lookup failed", map[string]interface{}{"slug": slug, "error": err})
		c.HTML(http.StatusInternalServerError, "error.html", s.view("Something went wrong", gin.H{
			"Intro": "We couldn't load this page. Please try again.",
		}))
		return
	}

	s.trackPageView(c)
	c.HTML(http.StatusOK, "landing.html", s.view(page.CompanyName, gin.H{
		"Page": page,
		"Form": s.formDefinition(forms.Demo),
	}))
}

func (s *Server) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "notfound.html", s.view("Page not found", nil))
}

func (s *Server) trackPageView(c *gin.Context) {
	if s.deps.Analytics == nil {
		return
	}
	sid, _ := c.Cookie(sessionCookie)
	if err := s.deps.Analytics.PageView(c.Request.Context(), c.Request.URL.Path, c.Request.Referer(), sid); err != nil {
		s.logger.Debug("page view not tracked", map[string]interface{}{"path": c.Request.URL.Path, "error": err})
	}
}
