package errors

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

func (d Definition) Error() string {
	return d.Message
}

// 行程调度相关错误。RideNotInTime 与 RouteNotFound 属于良性结果，
// 调用方不应按 error 级别记录。
var (
	RideNotInTime      = Definition{Code: "RIDE_NOT_IN_TIME", Message: "Ride has no upcoming notifications"}
	RouteNotFound      = Definition{Code: "ROUTE_NOT_FOUND", Message: "No route matches the ride trains"}
	SchedulerNotFound  = Definition{Code: "SCHEDULER_NOT_FOUND", Message: "No live scheduler for ride"}
	SchedulerInitError = Definition{Code: "SCHEDULER_INIT_ERROR", Message: "Failed to init scheduler"}
)

// 持久化与投递错误。
var (
	PersistenceFailed = Definition{Code: "PERSISTENCE_FAILED", Message: "Ride store write failed"}
	DispatchFailed    = Definition{Code: "DISPATCH_FAILED", Message: "Push dispatch failed"}
)

// 请求层错误。
var (
	InvalidPayload  = Definition{Code: "INVALID_PAYLOAD", Message: "Invalid request payload"}
	RateLimited     = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
	RailUpstream    = Definition{Code: "RAIL_UPSTREAM_ERROR", Message: "Failed to fetch rail data"}
	RideStartFailed = Definition{Code: "RIDE_START_FAILED", Message: "Failed to start ride notifications"}
)

// IsBenign 判断错误是否属于预期内的负向结果（不该打 error 日志）。
func IsBenign(err error) bool {
	switch err {
	case RideNotInTime, RouteNotFound:
		return true
	}
	return false
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	RideNotInTime.Code:      RideNotInTime,
	RouteNotFound.Code:      RouteNotFound,
	SchedulerNotFound.Code:  SchedulerNotFound,
	SchedulerInitError.Code: SchedulerInitError,
	PersistenceFailed.Code:  PersistenceFailed,
	DispatchFailed.Code:     DispatchFailed,
	InvalidPayload.Code:     InvalidPayload,
	RateLimited.Code:        RateLimited,
	RailUpstream.Code:       RailUpstream,
	RideStartFailed.Code:    RideStartFailed,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
