package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/service"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

const webhookSignatureHeader = "X-Webhook-Signature"

// PaymentWebhookBody 渠道回调报文
type PaymentWebhookBody struct {
	OrderNo       string `json:"order_no" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
	Metadata      string `json:"metadata"`
}

// PaymentWebhook 支付渠道回调
// POST /api/v1/pay/webhook
//
// 回调必须携带对原始报文的 HMAC-SHA256 签名，校验通过才进入确认流程，
// 未签名/签错的请求在任何业务逻辑之前就被拒绝。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		response.ParamError(c, "读取请求体失败")
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if !verifyWebhookSignature(h.cfg.Payment.WebhookSecret, rawBody, signature) {
		response.Forbidden(c, "签名校验失败")
		return
	}

	var body PaymentWebhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if body.OrderNo == "" || body.TransactionID == "" || body.Status == "" {
		response.ParamError(c, "order_no / transaction_id / status 不能为空")
		return
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request.Context(), &service.ConfirmPaymentRequest{
		OrderNo:       body.OrderNo,
		TransactionID: body.TransactionID,
		Status:        body.Status,
		Metadata:      body.Metadata,
		Actor:         nil, // 渠道回调，签名即身份
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, payment)
}

// verifyWebhookSignature 校验 HMAC-SHA256 十六进制签名，恒定时间比较
func verifyWebhookSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
