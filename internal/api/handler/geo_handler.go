package handler

import (
	"github.com/gin-gonic/gin"

	"titleflow/backend/internal/geo"
	"titleflow/backend/pkg/response"
)

// GeoHandler 行政区划查询 HTTP 处理器
type GeoHandler struct{}

// NewGeoHandler 创建 GeoHandler
func NewGeoHandler() *GeoHandler {
	return &GeoHandler{}
}

// States 全部邦列表
// GET /api/v1/geo/states
func (h *GeoHandler) States(c *gin.Context) {
	response.OK(c, geo.States())
}

// Districts 指定邦下辖地区列表
// GET /api/v1/geo/states/:state/districts
func (h *GeoHandler) Districts(c *gin.Context) {
	state := c.Param("state")
	if !geo.IsValidState(state) {
		response.NotFound(c, 12003, "邦不存在")
		return
	}
	response.OK(c, geo.Districts(state))
}
