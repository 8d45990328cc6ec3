package main

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/Rundown/internal/authority"
	"github.com/dkeye/Rundown/internal/client"
	"github.com/dkeye/Rundown/internal/render"
)

type stateView struct {
	Role          string         `json:"role"`
	State         string         `json:"state"`
	VcsParams     map[string]any `json:"vcs_params"`
	Interactions  map[string]any `json:"interactions"`
	CurrentItem   string         `json:"current_item"`
	Slots         [2]string      `json:"slots"`
	Recording     bool           `json:"recording"`
	LiveStreaming bool           `json:"live_streaming"`
}

// stateRouter serves the local view of the session. Reads go through the
// session loop so they never race the controller.
func stateRouter(sess *client.Session, comp *render.Composition) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/state", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		var view stateView
		err := sess.Do(ctx, func(ctrl *authority.Controller) {
			doc := ctrl.Document()
			view = stateView{
				Role:          string(ctrl.Role()),
				State:         ctrl.State().String(),
				VcsParams:     doc.VcsParams.StringMap(),
				Interactions:  maps.Clone(doc.Interactions),
				CurrentItem:   doc.CurrentItem(),
				Slots:         ctrl.OrderedSlots(),
				Recording:     ctrl.Recording(),
				LiveStreaming: ctrl.LiveStreaming(),
			}
		})
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	})
	r.GET("/render", func(c *gin.Context) {
		c.JSON(http.StatusOK, comp.Snapshot())
	})
	// The surface was resized.
	r.PUT("/display", func(c *gin.Context) {
		var size render.Size
		if err := c.ShouldBindJSON(&size); err != nil || size.W <= 0 || size.H <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expected {\"w\":>0,\"h\":>0}"})
			return
		}
		comp.SetDisplaySize(size.W, size.H)
		c.JSON(http.StatusOK, comp.Snapshot())
	})
	return r
}
