package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

const testWebhookSecret = "test-secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"order_no":"ORD1","transaction_id":"TXN1","status":"COMPLETED"}`)

	if !verifyWebhookSignature(testWebhookSecret, body, sign(testWebhookSecret, body)) {
		t.Error("正确签名应通过校验")
	}
	if verifyWebhookSignature(testWebhookSecret, body, "") {
		t.Error("空签名应被拒绝")
	}
	if verifyWebhookSignature(testWebhookSecret, body, "deadbeef") {
		t.Error("错误签名应被拒绝")
	}
	if verifyWebhookSignature(testWebhookSecret, body, sign("other-secret", body)) {
		t.Error("不同密钥的签名应被拒绝")
	}
	// 报文被篡改后原签名失效
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'X'
	if verifyWebhookSignature(testWebhookSecret, tampered, sign(testWebhookSecret, body)) {
		t.Error("篡改报文后签名应失效")
	}
}

// 签名不过的回调在进入任何业务逻辑之前就被拒绝，
// 这里 paymentService 为空指针也不会被触碰
func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		cfg: &config.Config{
			Payment: config.PaymentConfig{WebhookSecret: testWebhookSecret},
		},
	}
	r := gin.New()
	r.POST("/api/v1/pay/webhook", h.PaymentWebhook)
	return r
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pay/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
	}
	return resp
}

func TestPaymentWebhookRejectsMissingSignature(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`{"order_no":"ORD1","transaction_id":"TXN1","status":"COMPLETED"}`)

	w := postWebhook(r, body, "")
	resp := decodeResponse(t, w)
	if resp.Code != response.CodeForbidden {
		t.Errorf("code = %d, want %d", resp.Code, response.CodeForbidden)
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`{"order_no":"ORD1","transaction_id":"TXN1","status":"COMPLETED"}`)

	w := postWebhook(r, body, sign("wrong-secret", body))
	resp := decodeResponse(t, w)
	if resp.Code != response.CodeForbidden {
		t.Errorf("code = %d, want %d", resp.Code, response.CodeForbidden)
	}
}

func TestPaymentWebhookRejectsIncompleteBody(t *testing.T) {
	r := newWebhookRouter()
	// 签名正确但报文缺字段，应报参数错误而不是进入确认流程
	body := []byte(`{"order_no":"ORD1"}`)

	w := postWebhook(r, body, sign(testWebhookSecret, body))
	resp := decodeResponse(t, w)
	if resp.Code != response.CodeParamError {
		t.Errorf("code = %d, want %d", resp.Code, response.CodeParamError)
	}
}
