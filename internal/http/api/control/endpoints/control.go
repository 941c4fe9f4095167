package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/http/api"
	"github.com/minaret-home/minaret/internal/http/api/control/packets"
	"github.com/minaret-home/minaret/internal/model"
)

// Commander publishes service commands to the integration.
type Commander interface {
	PlayAzan(ev model.Event)
	StopAzan()
	RefreshTimes()
}

// ControlModule mounts the authenticated service command endpoints.
func ControlModule(cmd Commander) api.Module {
	ctl := &controlController{cmd: cmd}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/control/play", ctl.play)
		c.POST("/control/stop", ctl.stop)
		c.POST("/control/refresh", ctl.refresh)
	})
}

type controlController struct {
	cmd Commander
}

// POST /api/admin/control/play
func (c *controlController) play(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.PlayRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	ev, ok := model.ParseEvent(request.Prayer)
	if !ok {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "unknown prayer"}
	}

	log.Info().Str("prayer", ev.String()).Str("user", user.Email).Msg("test playback requested")
	c.cmd.PlayAzan(ev)
	return gin.H{"status": "accepted"}, nil
}

// POST /api/admin/control/stop
func (c *controlController) stop(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	log.Info().Str("user", user.Email).Msg("playback stop requested")
	c.cmd.StopAzan()
	return gin.H{"status": "accepted"}, nil
}

// POST /api/admin/control/refresh
func (c *controlController) refresh(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	log.Info().Str("user", user.Email).Msg("schedule refresh requested")
	c.cmd.RefreshTimes()
	return gin.H{"status": "accepted"}, nil
}
