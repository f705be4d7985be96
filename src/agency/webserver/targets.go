package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/cat-agency/src/agency/missions"
)

type Targets struct{ coord *missions.Coordinator }

func NewTargets(coord *missions.Coordinator) Targets { return Targets{coord: coord} }

func (h Targets) Create(c *gin.Context) {
	missionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req targetDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tg, err := h.coord.CreateTarget(c.Request.Context(), missionID, missions.TargetDraft{
		Name: req.Name, Country: req.Country, Notes: req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tg)
}

func (h Targets) Get(c *gin.Context) {
	missionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "tid")
	if !ok {
		return
	}
	tg, err := h.coord.GetTarget(c.Request.Context(), missionID, targetID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tg)
}

func (h Targets) Update(c *gin.Context) {
	missionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "tid")
	if !ok {
		return
	}
	var req targetPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tg, err := h.coord.UpdateTarget(c.Request.Context(), missionID, targetID, req.patch(targetID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tg)
}

func (h Targets) Delete(c *gin.Context) {
	missionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "tid")
	if !ok {
		return
	}
	if err := h.coord.DeleteTarget(c.Request.Context(), missionID, targetID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
