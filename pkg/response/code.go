package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户/鉴权 100xx
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 优惠券 200xx
	ErrCouponNotFound = 20001
	ErrCouponInvalid  = 20002
	ErrCouponExists   = 20003
	ErrCouponRedeemed = 20004

	// 订单/分账 300xx
	ErrOrderNotFound   = 30001
	ErrProductNotFound = 30002
	ErrSellerMissing   = 30003
	ErrPayoutNotFound  = 30004
	ErrOrderState      = 30005

	// 支付 400xx
	ErrPaymentNotFound     = 40001
	ErrPaymentState        = 40002
	ErrProviderUnavailable = 40003
	ErrProviderUnsupported = 40004

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
