package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/cat-agency/src/agency/missions"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

type Missions struct{ coord *missions.Coordinator }

func NewMissions(coord *missions.Coordinator) Missions { return Missions{coord: coord} }

type targetDraftRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Country string `json:"country" binding:"required,max=200"`
	Notes   string `json:"notes" binding:"max=3000"`
}

type targetPatchRequest struct {
	ID      uint64        `json:"id"`
	Name    *string       `json:"name"`
	Country *string       `json:"country"`
	Notes   *string       `json:"notes"`
	Status  *types.Status `json:"status"`
}

func (p targetPatchRequest) patch(id uint64) missions.TargetPatch {
	return missions.TargetPatch{ID: id, Name: p.Name, Country: p.Country, Notes: p.Notes, Status: p.Status}
}

func (h Missions) Create(c *gin.Context) {
	var req struct {
		AgentID *uint64              `json:"agent_id"`
		Targets []targetDraftRequest `json:"targets" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	draft := missions.MissionDraft{AgentID: req.AgentID}
	for _, t := range req.Targets {
		draft.Targets = append(draft.Targets, missions.TargetDraft{Name: t.Name, Country: t.Country, Notes: t.Notes})
	}
	m, err := h.coord.CreateMission(c.Request.Context(), draft)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Missions) List(c *gin.Context) {
	ms, err := h.coord.ListMissions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (h Missions) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.coord.GetMission(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	withETag(c, m)
}

// Update applies a nested change. "agent_id": null unassigns; an absent
// agent_id leaves the agent alone.
func (h Missions) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		AgentID json.RawMessage      `json:"agent_id"`
		Status  *types.Status        `json:"status"`
		Targets []targetPatchRequest `json:"targets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	upd := missions.MissionUpdate{Status: req.Status}
	if len(req.AgentID) > 0 {
		var agentID *uint64
		if err := json.Unmarshal(req.AgentID, &agentID); err != nil {
			badRequest(c, fmt.Errorf("agent_id: %w", err))
			return
		}
		upd.Agent = &missions.AgentRef{ID: agentID}
	}
	for _, p := range req.Targets {
		if p.ID == 0 {
			badRequest(c, fmt.Errorf("targets: id is required"))
			return
		}
		upd.Targets = append(upd.Targets, p.patch(p.ID))
	}

	m, err := h.coord.UpdateMission(c.Request.Context(), id, upd)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Missions) Assign(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		AgentID *uint64 `json:"agent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.coord.AssignAgent(c.Request.Context(), id, req.AgentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Missions) Recompute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := h.coord.RecomputeMissionStatus(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Missions) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.coord.DeleteMission(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
