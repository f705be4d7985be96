package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/cat-agency/src/agency/registry"
)

type Cats struct{ reg *registry.Registry }

func NewCats(reg *registry.Registry) Cats { return Cats{reg: reg} }

func (h Cats) Create(c *gin.Context) {
	var req struct {
		Name   string  `json:"name" binding:"required,max=100"`
		Breed  string  `json:"breed" binding:"required,max=100"`
		Salary float64 `json:"salary" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	agent, err := h.reg.CreateAgent(c.Request.Context(), req.Name, req.Breed, req.Salary)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func (h Cats) List(c *gin.Context) {
	agents, err := h.reg.ListAgents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h Cats) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	agent, err := h.reg.GetAgent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	withETag(c, agent)
}

func (h Cats) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name   *string  `json:"name"`
		Breed  *string  `json:"breed"`
		Salary *float64 `json:"salary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	agent, err := h.reg.UpdateAgent(c.Request.Context(), id, registry.AgentUpdate{
		Name:   req.Name,
		Breed:  req.Breed,
		Salary: req.Salary,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h Cats) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.reg.DeleteAgent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
