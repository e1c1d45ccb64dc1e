package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SessionReader is the read side of the session holder
type SessionReader interface {
	Authenticated() bool
}

// Middleware evaluates the policy on every request. Routes are matched by
// their gin pattern, so "/transacoes/:id/editar" is classified once.
// Redirects use 303 so a guarded POST turns into a GET of the target.
func Middleware(p *Policy, session SessionReader, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requested := Route(c.FullPath())
		if requested == "" {
			requested = Route(c.Request.URL.Path)
		}

		resolved := p.Resolve(session.Authenticated(), requested)
		if resolved != requested {
			log.Debug().
				Str("requested", string(requested)).
				Str("resolved", string(resolved)).
				Msg("Route redirected by guard")
			c.Redirect(http.StatusSeeOther, string(resolved))
			c.Abort()
			return
		}

		c.Next()
	}
}
