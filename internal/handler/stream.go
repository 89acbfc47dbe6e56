package handler

import (
	"io"
	"strconv"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

// Stream 实时事件通道（Server-Sent Events）
// GET /api/v1/stream?customer_id=1
// GET /api/v1/stream?stall_id=2
// GET /api/v1/stream?hawker_id=1&table_number=12
//
// 查询参数声明要加入的主题，可以同时加入多类。加入主题不做权限控制，
// 身份在上游已认证，这里只负责把事件送到声明关心它的连接上。
// 投递是至多一次：断线期间丢的事件客户端用 /order/detail 补齐状态。
func (h *Handler) Stream(c *gin.Context) {
	var topics []string

	if customerID, ok := queryInt64(c, "customer_id"); ok {
		topics = append(topics, eventbus.CustomerTopic(customerID))
	}
	if stallID, ok := queryInt64(c, "stall_id"); ok {
		topics = append(topics, eventbus.StallTopic(stallID))
	}
	if hawkerID, ok := queryInt64(c, "hawker_id"); ok {
		if tableNumber, err := strconv.Atoi(c.Query("table_number")); err == nil {
			topics = append(topics, eventbus.TableTopic(hawkerID, tableNumber))
		}
	}

	if len(topics) == 0 {
		response.ParamError(c, "至少需要加入一个主题")
		return
	}

	sub := h.bus.Subscribe(topics...)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
