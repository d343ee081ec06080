package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/prompt"
	"github.com/zulandar/vibeyard/internal/settings"
)

type modelView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	ModelName   string    `json:"model_name"`
	EndpointURL string    `json:"endpoint_url"`
	HasAPIKey   bool      `json:"has_api_key"`
	Tasks       []string  `json:"tasks"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newModelView(m *models.AIModelConfig) modelView {
	v := modelView{
		ID:          m.ID,
		Name:        m.Name,
		ModelName:   m.ModelName,
		EndpointURL: m.EndpointURL,
		HasAPIKey:   m.APIKey != "",
		Tasks:       []string{},
		UpdatedAt:   m.UpdatedAt,
	}
	if m.IsCodeGeneration {
		v.Tasks = append(v.Tasks, string(aimodel.TaskCode))
	}
	if m.IsPreviewGeneration {
		v.Tasks = append(v.Tasks, string(aimodel.TaskPreview))
	}
	if m.IsReportGeneration {
		v.Tasks = append(v.Tasks, string(aimodel.TaskReport))
	}
	return v
}

func modelID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid model id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func (s *server) handleListModels(c *gin.Context) {
	cfgs, err := aimodel.List(s.DB)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]modelView, len(cfgs))
	for i := range cfgs {
		out[i] = newModelView(&cfgs[i])
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

type modelBody struct {
	Name        string `json:"name" binding:"required"`
	APIKey      string `json:"api_key"`
	ModelName   string `json:"model_name" binding:"required"`
	EndpointURL string `json:"endpoint_url" binding:"required,url"`
}

func (s *server) handleCreateModel(c *gin.Context) {
	var body modelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	m, err := aimodel.Create(s.DB, aimodel.CreateOpts{
		Name:        body.Name,
		APIKey:      body.APIKey,
		ModelName:   body.ModelName,
		EndpointURL: body.EndpointURL,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.Log.Info("model config created", "name", m.Name, "by", user(c))
	c.JSON(http.StatusCreated, newModelView(m))
}

type modelPatchBody struct {
	Name        *string `json:"name"`
	APIKey      *string `json:"api_key"`
	ModelName   *string `json:"model_name"`
	EndpointURL *string `json:"endpoint_url" binding:"omitempty,url"`
}

// handleUpdateModel edits a config. Omitted fields keep their value, so the
// masked API key is only replaced when a new one is sent.
func (s *server) handleUpdateModel(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	var body modelPatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	m, err := aimodel.Update(s.DB, id, aimodel.UpdateOpts{
		Name:        body.Name,
		APIKey:      body.APIKey,
		ModelName:   body.ModelName,
		EndpointURL: body.EndpointURL,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.Log.Info("model config updated", "name", m.Name, "key_changed", body.APIKey != nil, "by", user(c))
	c.JSON(http.StatusOK, newModelView(m))
}

type activateBody struct {
	Task    string `json:"task" binding:"required"`
	Enabled *bool  `json:"enabled"`
}

func (s *server) handleActivateModel(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	var body activateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	task, err := aimodel.ParseTask(body.Task)
	if err != nil {
		s.writeError(c, err)
		return
	}
	enabled := body.Enabled == nil || *body.Enabled
	if err := aimodel.Activate(s.DB, id, task, enabled); err != nil {
		s.writeError(c, err)
		return
	}
	m, err := aimodel.Get(s.DB, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.Log.Info("model activation changed", "name", m.Name, "task", task, "enabled", enabled, "by", user(c))
	c.JSON(http.StatusOK, newModelView(m))
}

func (s *server) handleDeleteModel(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	if err := aimodel.Delete(s.DB, id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleGetSettings(c *gin.Context) {
	all, err := settings.All(s.DB)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (s *server) handlePutSettings(c *gin.Context) {
	var body map[string]bool
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	for key := range body {
		if !isKnownSetting(key) {
			s.writeError(c, fmt.Errorf("%w: %q", settings.ErrUnknownKey, key))
			return
		}
	}
	for key, value := range body {
		if err := settings.SetBool(s.DB, key, value); err != nil {
			s.writeError(c, err)
			return
		}
	}
	s.handleGetSettings(c)
}

func isKnownSetting(key string) bool {
	for _, k := range settings.Known {
		if k == key {
			return true
		}
	}
	return false
}

func (s *server) handleGetPrompt(c *gin.Context) {
	content, err := prompt.Get(s.DB, c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "content": content})
}

type promptBody struct {
	Content string `json:"content" binding:"required"`
}

func (s *server) handlePutPrompt(c *gin.Context) {
	var body promptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := prompt.Set(s.DB, c.Param("name"), body.Content); err != nil {
		s.writeError(c, err)
		return
	}
	s.Log.Info("prompt updated", "name", c.Param("name"), "by", user(c))
	c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "content": body.Content})
}
