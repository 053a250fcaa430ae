package sitecms

import (
	"github.com/a-h/templ"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/views"
)

// ViewFuncs holds the templ components the server renders pages with.
// Sites replace any of them to own their markup; DefaultViews fills the
// rest.
type ViewFuncs struct {
	Page           func(p views.Page) templ.Component
	Home           func(h views.Home) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(d views.Dashboard) templ.Component
	AdminEditor    func(e views.Editor) templ.Component
	NotFound       func(l content.Locale) templ.Component
	ServerError    func() templ.Component
}

// DefaultViews returns the built-in components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Page:           views.PageView,
		Home:           views.HomeView,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		AdminEditor:    views.AdminEditor,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

func (v *ViewFuncs) fill() {
	d := DefaultViews()
	if v.Page == nil {
		v.Page = d.Page
	}
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.AdminLogin == nil {
		v.AdminLogin = d.AdminLogin
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = d.AdminDashboard
	}
	if v.AdminEditor == nil {
		v.AdminEditor = d.AdminEditor
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
}
