package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/MABDC-admin/st.francis-portal-sub001/core"
)

const (
	actorHeader     = "X-Staff-ID"
	contextActorKey = "actor"
)

// actorMiddleware records the staff member named by the X-Staff-ID header.
// Authentication happens upstream (portal gateway); the ledger only stamps who acted.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if id := core.CleanString(ctx.Request().Header.Get(actorHeader)); id != "" {
			ctx.Set(contextActorKey, core.Actor(id))
		}
		return next(ctx)
	}
}

func contextActor(ctx echo.Context) core.Actor {
	actor, _ := ctx.Get(contextActorKey).(core.Actor)
	return actor
}
