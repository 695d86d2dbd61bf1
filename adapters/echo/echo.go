// Package nextgoecho mounts the nextgo dispatch middleware on an Echo
// instance.
//
//	e := echo.New()
//	e.Use(nextgoecho.Middleware(app))
//	e.GET("/posts/:id", func(c echo.Context) error {
//	    return nextgoecho.Context(c).Render("/post", map[string]any{"id": c.Param("id")}, nil)
//	})
//
// Echo's own 404 and 405 for unmatched routes are suppressed so the engine
// answers them, as with any other host router. Errors returned by handlers
// become error pages or error snapshots; an *echo.HTTPError keeps its status.
package nextgoecho

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xinpianchang/nextgo"
)

// Middleware adapts app to Echo. Register it with Echo.Use.
func Middleware(app *nextgo.App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := app.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				c.SetResponse(echo.NewResponse(w, c.Echo()))
				if err := next(c); err != nil && !isRouteMiss(err) {
					nextgo.Fail(r, convert(err))
				}
			}))
			h.ServeHTTP(c.Response(), c.Request())
			return nil
		}
	}
}

// Context returns the render context bound by Middleware, or nil.
func Context(c echo.Context) *nextgo.Context {
	return nextgo.FromRequest(c.Request())
}

func isRouteMiss(err error) bool {
	return errors.Is(err, echo.ErrNotFound) || errors.Is(err, echo.ErrMethodNotAllowed)
}

// convert maps Echo's error type onto nextgo's so the status survives.
func convert(err error) error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	return &nextgo.HTTPError{
		Code:    he.Code,
		Message: fmt.Sprint(he.Message),
		Expose:  he.Code < http.StatusInternalServerError,
		Err:     he.Internal,
	}
}
