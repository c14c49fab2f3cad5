package model

// RideResponse 创建/操作行程的统一返回体。
type RideResponse struct {
	Success bool   `json:"success"`
	RideID  string `json:"rideId,omitempty"`
}

// ErrorDetail 表示错误详情。
type ErrorDetail map[string]interface{}

// ErrorBody 表示错误主体。
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details ErrorDetail `json:"details,omitempty"`
}

// ErrorResponse 表示统一的错误响应结构。
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse 构造错误响应。
func NewErrorResponse(code, message string, details ErrorDetail) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}}
}
