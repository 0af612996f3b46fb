// Package navigation turns mutation outcomes into outcome-screen routes.
package navigation

import (
	"net/url"
	"strings"

	"github.com/signal-miniapp/internal/logging"
)

// Screen is a path the client can be sent to
type Screen string

const (
	ScreenHome    Screen = "/"
	ScreenSuccess Screen = "/success"
	ScreenFailed  Screen = "/failed"
)

// HomeLabel is the text of the only affordance on outcome screens
const HomeLabel = "Вернуться на главную"

// Route is a screen plus the message it displays verbatim
type Route struct {
	Screen  Screen `json:"screen"`
	Message string `json:"message"`
}

// IsSuccess reports whether r points at the success screen
func (r Route) IsSuccess() bool {
	return r.Screen == ScreenSuccess
}

// URL renders the route as a relative URL
func (r Route) URL() string {
	if r.Message == "" {
		return string(r.Screen)
	}
	return string(r.Screen) + "?message=" + EncodeComponent(r.Message)
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent escapes s the way browsers' encodeURIComponent does:
// spaces become %20 and !'()* stay literal.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// Navigator delivers a route to whoever is displaying the app
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route Route)

// Navigate implements Navigator
func (f NavigatorFunc) Navigate(route Route) {
	f(route)
}

// Router sends the client to the success or failure screen
type Router struct {
	logger *logging.Logger
}

// NewRouter creates a router. logger may be nil.
func NewRouter(logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Router{logger: logger}
}

// ToSuccess navigates to /success with message
func (r *Router) ToSuccess(nav Navigator, message string) Route {
	return r.navigate(nav, Route{Screen: ScreenSuccess, Message: message})
}

// ToFailure navigates to /failed with message
func (r *Router) ToFailure(nav Navigator, message string) Route {
	return r.navigate(nav, Route{Screen: ScreenFailed, Message: message})
}

func (r *Router) navigate(nav Navigator, route Route) Route {
	r.logger.WithFields(map[string]interface{}{
		"screen":  string(route.Screen),
		"message": route.Message,
	}).Debug("navigating to outcome screen")
	if nav != nil {
		nav.Navigate(route)
	}
	return route
}

// Link is a single affordance on a screen
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// OutcomePage is what an outcome screen shows: the message and a way home
type OutcomePage struct {
	Screen  Screen `json:"screen"`
	Message string `json:"message,omitempty"`
	Home    Link   `json:"home"`
}

// PageFor builds the outcome page for screen from a raw query string value.
// Nothing but the message is read from the URL.
func PageFor(screen Screen, query url.Values) OutcomePage {
	return OutcomePage{
		Screen:  screen,
		Message: query.Get("message"),
		Home:    Link{Label: HomeLabel, Href: string(ScreenHome)},
	}
}
