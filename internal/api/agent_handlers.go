package api

import (
	"net/http"

	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	agentService service.AgentService
	logService   service.LogService
}

func NewAgentHandler(agentService service.AgentService, logService service.LogService) *AgentHandler {
	return &AgentHandler{agentService: agentService, logService: logService}
}

// @Summary Create an agent
// @Tags Agents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param agent body CreateUserRequest true "Agent"
// @Success 201 {object} Envelope{data=models.User}
// @Failure 400 {object} Envelope "Missing fields or duplicate email/mobile"
// @Failure 401 {object} Envelope "Admins only"
// @Router /createAgent [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	agent, err := h.agentService.CreateAgent(c.Request.Context(), identity, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "CreateAgent", "Created agent "+agent.Email, map[string]interface{}{"agent_id": agent.ID.Hex()})
	respond(c, http.StatusCreated, agent, "Agent created successfully")
}

// @Summary Update an agent
// @Description Deactivating an agent deactivates every account it holds
// @Tags Agents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Param agent body UpdateAgentRequest true "Fields to change"
// @Success 200 {object} Envelope{data=models.User}
// @Failure 400 {object} Envelope "Duplicate email or mobile"
// @Failure 401 {object} Envelope "Admins only"
// @Failure 404 {object} Envelope "Agent not found"
// @Router /updateAgent/{id} [put]
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateAgentRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	agent, err := h.agentService.UpdateAgent(c.Request.Context(), identity, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "UpdateAgent", "Updated agent "+agent.Email, map[string]interface{}{"agent_id": id})
	respond(c, http.StatusOK, agent, "Agent updated successfully")
}

// @Summary Change an agent password
// @Description Admins reset with new and confirmation password; an agent changing its own also needs the old one
// @Tags Agents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Param passwords body ChangePasswordRequest true "Passwords"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope "Mismatch or wrong old password"
// @Failure 401 {object} Envelope "Unauthorized"
// @Failure 404 {object} Envelope "Agent not found"
// @Router /updateAgentPassword/{id} [put]
func (h *AgentHandler) UpdateAgentPassword(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.agentService.UpdateAgentPassword(c.Request.Context(), identity, id, req.input()); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "UpdateAgentPassword", "Changed agent password", map[string]interface{}{"agent_id": id})
	respond(c, http.StatusOK, nil, "Password changed successfully")
}

// @Summary List agents
// @Tags Agents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=[]models.User}
// @Failure 401 {object} Envelope "Admins only"
// @Router /getAgents [get]
func (h *AgentHandler) GetAgents(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	agents, err := h.agentService.GetAgents(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, agents, "")
}

// @Summary Delete an agent
// @Description Deactivates the agent's accounts, then removes the agent
// @Tags Agents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope "Admins only"
// @Failure 404 {object} Envelope "Agent not found"
// @Router /deleteAgent/{id} [delete]
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.agentService.DeleteAgent(c.Request.Context(), identity, id); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "DeleteAgent", "Deleted agent", map[string]interface{}{"agent_id": id})
	respond(c, http.StatusOK, nil, "Agent deleted successfully")
}
