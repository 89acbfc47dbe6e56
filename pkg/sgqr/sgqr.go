package sgqr

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ============================================================================
// SGQR / EMV 收款二维码载荷生成
// ============================================================================
//
// 【载荷结构】TLV（tag + 2位长度 + value）顺序拼接：
//
//   00  载荷格式指示符，固定 "01"
//   01  发起方式：11 静态码（金额可改）/ 12 动态码（金额固定）
//   26  收款方标识（PayNow 代理信息，自身也是一串子TLV）:
//         00 = SG.PAYNOW
//         01 = 代理类型，2 表示 UEN
//         02 = 商户 UEN
//         03 = 金额是否可编辑（0/1）
//   52  商户类目码，固定 "0000"
//   53  币种，新币数字代码 "702"
//   58  国家 "SG"
//   59  商户名，截断到25字符并用空格右补齐到恰好25位
//   60  城市 "Singapore"
//   62  附加数据，内嵌账单号子字段：05 + 2位长度 + billNumber
//   54  交易金额（仅金额固定时出现），两位小数
//   63  CRC，tag+长度 "6304" 先拼入，再对包含 "6304" 在内的全部内容
//       计算 CRC16-CCITT，4位大写十六进制追加在末尾
//
// 这里的 tag 顺序是与扫码端的互操作约定，逐字节固定，不要调整。
// 本包是纯函数：相同输入永远产生相同字符串，渲染成图片是展示层的事。
// ============================================================================

// Request 生成收款码所需的全部输入
type Request struct {
	Amount         decimal.Decimal // 应收金额
	AmountEditable bool            // true 时生成静态码，付款人可自行改金额
	MerchantName   string          // 商户名（摊位名）
	MerchantUEN    string          // PayNow 收款 UEN
	BillNumber     string          // 账单号（订单号）
}

// BuildPaymentPayload 生成完整的 SGQR 载荷字符串
func BuildPaymentPayload(req Request) string {
	initiation := "12"
	editableFlag := "0"
	if req.AmountEditable {
		initiation = "11"
		editableFlag = "1"
	}

	payload := tlv("00", "01")
	payload += tlv("01", initiation)

	merchantAccount := tlv("00", "SG.PAYNOW") +
		tlv("01", "2") + // 代理类型：UEN
		tlv("02", req.MerchantUEN) +
		tlv("03", editableFlag)
	payload += tlv("26", merchantAccount)

	payload += tlv("52", "0000")
	payload += tlv("53", "702")
	payload += tlv("58", "SG")
	payload += tlv("59", padMerchantName(req.MerchantName))
	payload += tlv("60", "Singapore")
	payload += tlv("62", tlv("05", req.BillNumber))

	if !req.AmountEditable {
		payload += tlv("54", req.Amount.StringFixed(2))
	}

	// CRC 的 tag 和长度参与校验计算
	payload += "6304"
	payload += Checksum(payload)

	return payload
}

// tlv 拼一个 tag + 2位长度 + value 记录
func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

// padMerchantName 商户名截断到25字符，空格右补齐到恰好25位
func padMerchantName(name string) string {
	if len(name) > 25 {
		name = name[:25]
	}
	return fmt.Sprintf("%-25s", name)
}

// Checksum 计算 CRC16-CCITT 并渲染为4位大写十六进制
func Checksum(payload string) string {
	return fmt.Sprintf("%04X", crc16ccitt([]byte(payload)))
}

// crc16ccitt 多项式 0x1021，初值 0xFFFF
// 逐字节异或进高8位，再做8轮 移位+条件异或
func crc16ccitt(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
