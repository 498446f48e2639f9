package api

import (
	"net/http"

	"github.com/cpduel/cpduel/internal/catalog"
	"github.com/cpduel/cpduel/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getCatalogTags(c *gin.Context) {
	tags, err := h.catalog.Tags(c.Request.Context())
	if err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, tags, "")
}

type catalogQuery struct {
	Tags      []string `form:"tags"`
	MinRating int      `form:"minRating"`
	MaxRating int      `form:"maxRating"`
}

func (h *Handler) getCatalogProblems(c *gin.Context) {
	var query catalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	problems, err := h.catalog.Problems(c.Request.Context(), catalog.Filter{
		Tags:      query.Tags,
		MinRating: query.MinRating,
		MaxRating: query.MaxRating,
	})
	if err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, problems, "")
}

type validateHandlesRequest struct {
	Handles []string `json:"handles" binding:"required"`
}

type validatedHandle struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
	Avatar string `json:"avatar"`
}

// validateHandles resolves a batch of handles against the judge in one
// request. The judge fails the whole batch when any handle is unknown,
// which is exactly the semantics a lobby wants.
func (h *Handler) validateHandles(c *gin.Context) {
	var req validateHandlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Handles) == 0 {
		util.Error(c, http.StatusBadRequest, "handles must not be empty")
		return
	}

	infos, err := h.judge.UserInfos(c.Request.Context(), req.Handles)
	if err != nil {
		util.Error(c, http.StatusUnprocessableEntity, err)
		return
	}

	out := make([]validatedHandle, len(infos))
	for i, info := range infos {
		out[i] = validatedHandle{Handle: info.Handle, Rating: info.Rating, Avatar: info.Avatar}
	}
	util.Success(c, out, "")
}
