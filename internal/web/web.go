// Package web serves the browser pages of the connections service: a home page with the sign-in
// link and the dashboard, whose state lives in static/dashboard.js.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Pages renders the HTML pages.
type Pages struct {
	verifier  identity.Verifier
	signInURL string
}

// NewPages creates the pages. The sign-in URL is the identity provider's page the home page
// links to; it may be empty.
func NewPages(verifier identity.Verifier, signInURL string) *Pages {
	return &Pages{verifier: verifier, signInURL: signInURL}
}

// Register adds the templates, the static assets and the page routes to the router.
func (p *Pages) Register(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFiles, "templates/*.html")))
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	router.StaticFS("/static", http.FS(static))
	router.GET("/", p.home)
	router.GET("/dashboard", p.dashboard)
}

// home shows a link to the dashboard for signed in users and the sign-in link otherwise.
func (p *Pages) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"SignedIn":  identity.SignedIn(p.verifier, c.Request),
		"SignInURL": p.signInURL,
	})
}

// dashboard serves the dashboard shell. Visitors without a session are sent to the home page.
func (p *Pages) dashboard(c *gin.Context) {
	if !identity.SignedIn(p.verifier, c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", nil)
}
