package sgqr

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestChecksumKnownVectors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123456789", "29B1"}, // CRC16-CCITT 标准校验向量
		{"", "FFFF"},
		{"6304", "6007"},
		{"A", "B915"},
	}

	for _, tt := range tests {
		got := Checksum(tt.input)
		if got != tt.want {
			t.Errorf("Checksum(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestBuildPaymentPayload_FixedAmount(t *testing.T) {
	payload := BuildPaymentPayload(Request{
		Amount:       decimal.RequireFromString("14.50"),
		MerchantName: "Ah Huat Chicken Rice",
		MerchantUEN:  "201403121W",
		BillNumber:   "20250101001",
	})

	want := "00020101021226370009SG.PAYNOW010120210201403121W030105204000053037025802SG" +
		"5925Ah Huat Chicken Rice     6009Singapore6215051120250101001540514.506304D176"
	if payload != want {
		t.Fatalf("payload 不匹配:\ngot  %s\nwant %s", payload, want)
	}

	// 末尾4位十六进制必须等于对前缀（含 6304）独立计算的 CRC
	prefix := payload[:len(payload)-4]
	if got := Checksum(prefix); got != payload[len(payload)-4:] {
		t.Errorf("CRC 不匹配: 计算值 %s, 载荷末尾 %s", got, payload[len(payload)-4:])
	}
}

func TestBuildPaymentPayload_EditableAmount(t *testing.T) {
	payload := BuildPaymentPayload(Request{
		AmountEditable: true,
		MerchantName:   "Ah Huat Chicken Rice",
		MerchantUEN:    "201403121W",
		BillNumber:     "20250101001",
	})

	want := "00020101021126370009SG.PAYNOW010120210201403121W030115204000053037025802SG" +
		"5925Ah Huat Chicken Rice     6009Singapore621505112025010100163042371"
	if payload != want {
		t.Fatalf("payload 不匹配:\ngot  %s\nwant %s", payload, want)
	}

	// 金额可编辑：静态码 + 不携带 54 金额字段
	if !strings.HasPrefix(payload, "000201010211") {
		t.Error("静态码的发起方式应为 11")
	}
}

func TestBuildPaymentPayload_Deterministic(t *testing.T) {
	req := Request{
		Amount:       decimal.RequireFromString("5.00"),
		MerchantName: "Kopi & Toast",
		MerchantUEN:  "201403121W",
		BillNumber:   "ORD20250215XYZ",
	}

	first := BuildPaymentPayload(req)
	second := BuildPaymentPayload(req)
	if first != second {
		t.Fatalf("相同输入产生了不同载荷:\n%s\n%s", first, second)
	}

	want := "00020101021226370009SG.PAYNOW010120210201403121W030105204000053037025802SG" +
		"5925Kopi & Toast             6009Singapore62180514ORD20250215XYZ54045.0063046C13"
	if first != want {
		t.Fatalf("payload 不匹配:\ngot  %s\nwant %s", first, want)
	}
}

func TestMerchantNamePadding(t *testing.T) {
	// 超长商户名截断到25字符
	long := BuildPaymentPayload(Request{
		Amount:       decimal.RequireFromString("1.00"),
		MerchantName: "An Exceedingly Long Hawker Stall Name",
		MerchantUEN:  "201403121W",
		BillNumber:   "B1",
	})
	if !strings.Contains(long, "5925An Exceedingly Long Hawk") {
		t.Error("超长商户名应截断到25字符")
	}

	// 短名空格补齐到恰好25位
	short := BuildPaymentPayload(Request{
		Amount:       decimal.RequireFromString("1.00"),
		MerchantName: "Kopi",
		MerchantUEN:  "201403121W",
		BillNumber:   "B1",
	})
	if !strings.Contains(short, "5925Kopi                     60") {
		t.Error("商户名应空格补齐到恰好25位")
	}
}

func TestAmountAlwaysTwoDecimals(t *testing.T) {
	payload := BuildPaymentPayload(Request{
		Amount:       decimal.NewFromInt(3),
		MerchantName: "Kopi",
		MerchantUEN:  "201403121W",
		BillNumber:   "B1",
	})
	if !strings.Contains(payload, "54043.00") {
		t.Errorf("整数金额应渲染为两位小数: %s", payload)
	}
}
