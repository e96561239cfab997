package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
)

type stateResponse struct {
	*studio.Snapshot
	Theme         model.Theme `json:"theme"`
	ExportEnabled bool        `json:"export_enabled"`
}

type generateRequest struct {
	Text  string        `json:"text"`
	Kind  model.Kind    `json:"kind"`
	Model model.ModelID `json:"model"`
	Image *model.Image  `json:"image,omitempty"`
}

type refineRequest struct {
	Instructions string `json:"instructions"`
}

type preferenceRequest struct {
	Theme model.Theme `json:"theme"`
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(c *gin.Context) {
	snap, err := s.studio.Snapshot(c.Request.Context())
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, stateResponse{
		Snapshot:      snap,
		Theme:         s.preference.Theme(),
		ExportEnabled: s.studio.ExportEnabled(),
	})
}

func (s *Server) postGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.studio.SubmitGeneration(ctx, studio.GenerationInput{
		Text:  req.Text,
		Kind:  req.Kind,
		Image: req.Image,
		Model: req.Model,
	})
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) postRefine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.studio.SubmitRefinement(ctx, model.ResultID(c.Param("id")), req.Instructions)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) deleteResults(c *gin.Context) {
	if err := s.studio.Clear(c.Request.Context()); err != nil {
		s.respondFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getDownload(c *gin.Context) {
	result, err := s.studio.Result(c.Request.Context(), model.ResultID(c.Param("id")))
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	if result.Kind != model.KindHTML {
		respondError(c, http.StatusBadRequest, "invalid_input", "only html results can be downloaded")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+studio.DownloadName(result.ID)+`"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.Output))
}

func (s *Server) postExport(c *gin.Context) {
	url, err := s.studio.Export(c.Request.Context(), model.ResultID(c.Param("id")))
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) putPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := s.preference.SetTheme(c.Request.Context(), req.Theme); err != nil {
		s.respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": s.preference.Theme()})
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.requestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}
