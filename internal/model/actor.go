package model

const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
)

// Actor 已认证的操作者身份
// 身份签发（OTP 登录等）在上游完成，订单引擎只消费 用户ID+角色
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsVendor() bool {
	return a.Role == RoleVendor
}

func (a Actor) IsCustomer() bool {
	return a.Role == RoleCustomer
}
