package http

import (
	nethttp "net/http"

	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/interfaces/handler/http/dto"
	"WorldShift/internal/dimension/registry"
	"WorldShift/internal/shared/transport"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transitions 是管理接口用到的协调器能力。
type Transitions interface {
	RequestEnterByName(fullName string) bool
	RequestExit() bool
	Status() entity.Status
}

type HttpHandler struct {
	coord Transitions
	reg   *registry.Registry
}

func NewHttpHandler(coord Transitions, reg *registry.Registry) *HttpHandler {
	return &HttpHandler{coord: coord, reg: reg}
}

func (h *HttpHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/dimensions", h.Dimensions)

	tg := group.Group("/transition")
	tg.GET("/status", h.Status)
	tg.POST("/enter", h.Enter)
	tg.POST("/exit", h.Exit)
}

// RegisterMetrics 挂 /metrics。
func RegisterMetrics(engine *gin.Engine, g prometheus.Gatherer) {
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

func (h *HttpHandler) Dimensions(c *gin.Context) {
	all := h.reg.All()
	out := make([]dto.Dimension, 0, len(all))
	for _, d := range all {
		passes := make([]string, 0, len(d.Passes))
		for _, p := range d.Passes {
			passes = append(passes, p.Name)
		}
		ret := d.ReturnTarget.String()
		if rd, ok := h.reg.Resolve(d.ReturnTarget); ok {
			ret = rd.FullName
		}
		out = append(out, dto.Dimension{
			ID:            d.ID,
			Name:          d.FullName,
			Width:         d.Width,
			Height:        d.Height,
			Passes:        passes,
			ReturnTarget:  ret,
			ShouldPersist: d.ShouldPersist,
		})
	}
	h.ok(c, out)
}

func (h *HttpHandler) Status(c *gin.Context) {
	h.ok(c, h.coord.Status())
}

func (h *HttpHandler) Enter(c *gin.Context) {
	var req dto.EnterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	if _, ok := h.reg.ByName(req.Name); !ok {
		h.fail(c, transport.NotFound, "维度不存在")
		return
	}
	h.reply(c, h.coord.RequestEnterByName(req.Name))
}

func (h *HttpHandler) Exit(c *gin.Context) {
	h.reply(c, h.coord.RequestExit())
}

func (h *HttpHandler) reply(c *gin.Context, accepted bool) {
	code := transport.OK
	if !accepted {
		code = transport.Rejected
		transport.SetErrorReason(c.Request.Context(), "rejected")
	}
	c.JSON(nethttp.StatusOK, dto.Success(code, dto.EnterResp{Accepted: accepted}))
}

func (h *HttpHandler) ok(c *gin.Context, data any) {
	c.JSON(nethttp.StatusOK, dto.Success(transport.OK, data))
}

func (h *HttpHandler) fail(c *gin.Context, code int, msg string) {
	c.JSON(nethttp.StatusOK, dto.Error(code, msg))
}
