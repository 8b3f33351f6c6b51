package common

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	StatusOK        = 200 // Thành công
	StatusAccepted  = 202 // Yêu cầu được chấp nhận
	StatusNoContent = 204 // Thành công nhưng không có nội dung trả về

	StatusBadRequest = 400 // Yêu cầu không hợp lệ
	StatusNotFound   = 404 // Không tìm thấy tài nguyên
	StatusConflict   = 409 // Xung đột dữ liệu (job đang chạy)

	StatusInternalServerError = 500 // Lỗi server
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
)

// Response Messages
const (
	MsgSuccess  = "Thao tác thành công"
	MsgAccepted = "Yêu cầu được chấp nhận"

	MsgBadRequest         = "Yêu cầu không hợp lệ"
	MsgNotFound           = "Không tìm thấy tài nguyên"
	MsgConflict           = "Xung đột dữ liệu"
	MsgInternalError      = "Lỗi hệ thống"
	MsgServiceUnavailable = "Dịch vụ không khả dụng"
	MsgValidationError    = "Dữ liệu không hợp lệ"
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: REC_001)
	Category    string // Phân loại lỗi
	SubCategory string // Phân loại con
	Description string // Mô tả chi tiết
}

// Định nghĩa các mã lỗi theo hệ thống phân cấp
var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{Code: "SYS_001", Category: "System", SubCategory: "Internal", Description: "Lỗi hệ thống nội bộ"}
	ErrCodeConfiguration  = ErrorCode{Code: "SYS_002", Category: "System", SubCategory: "Configuration", Description: "Thiếu hoặc sai cấu hình (connection string, credentials)"}

	// Validation Errors (VAL_xxx)
	ErrCodeValidationInput  = ErrorCode{Code: "VAL_001", Category: "Validation", SubCategory: "Input", Description: "Lỗi dữ liệu đầu vào"}
	ErrCodeValidationFormat = ErrorCode{Code: "VAL_002", Category: "Validation", SubCategory: "Format", Description: "Lỗi định dạng dữ liệu"}

	// Database Errors (DB_xxx)
	ErrCodeDatabase           = ErrorCode{Code: "DB", Category: "Database", SubCategory: "General", Description: "Lỗi cơ sở dữ liệu chung"}
	ErrCodeDatabaseConnection = ErrorCode{Code: "DB_001", Category: "Database", SubCategory: "Connection", Description: "Lỗi kết nối cơ sở dữ liệu"}
	ErrCodeDatabaseQuery      = ErrorCode{Code: "DB_002", Category: "Database", SubCategory: "Query", Description: "Lỗi truy vấn dữ liệu"}

	// Reconciliation Errors (REC_xxx)
	ErrCodeReconcile      = ErrorCode{Code: "REC", Category: "Reconcile", SubCategory: "General", Description: "Lỗi đối soát chung"}
	ErrCodeReconcileLock  = ErrorCode{Code: "REC_001", Category: "Reconcile", SubCategory: "Lock", Description: "Tài nguyên đang bị một lần chạy khác giữ"}
	ErrCodeReconcileMerge = ErrorCode{Code: "REC_002", Category: "Reconcile", SubCategory: "Merge", Description: "Gộp hồ sơ thất bại, nhóm được giữ nguyên"}
	ErrCodeReconcileJob   = ErrorCode{Code: "REC_003", Category: "Reconcile", SubCategory: "Job", Description: "Job đối soát không hợp lệ"}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // HTTP status code
	Details    any       // Thông tin chi tiết thêm về lỗi
}

// Error trả về message của lỗi
func (e *Error) Error() string {
	return e.Message
}

// Is so sánh theo mã lỗi và message (hỗ trợ errors.Is khi lỗi được tạo lại với Details khác)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// Unwrap trả về lỗi gốc nếu Details là một error
func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// Custom errors
var (
	// System
	ErrConfiguration = NewError(ErrCodeConfiguration, "Cấu hình không hợp lệ", StatusInternalServerError, nil)

	// Validation
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)
	ErrRequiredField = NewError(ErrCodeValidationInput, "Thiếu thông tin bắt buộc", StatusBadRequest, nil)

	// Database
	ErrNotFound    = NewError(ErrCodeDatabaseQuery, "Không tìm thấy dữ liệu", StatusNotFound, nil)
	ErrDuplicate   = NewError(ErrCodeDatabaseQuery, "Dữ liệu đã tồn tại", StatusConflict, nil)
	ErrConnection  = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối cơ sở dữ liệu", StatusServiceUnavailable, nil)
	ErrTransaction = NewError(ErrCodeDatabaseQuery, "Lỗi giao dịch cơ sở dữ liệu", StatusInternalServerError, nil)

	// Reconcile
	ErrLockHeld     = NewError(ErrCodeReconcileLock, "Tài nguyên đang được xử lý bởi lần chạy khác", StatusConflict, nil)
	ErrMergeAborted = NewError(ErrCodeReconcileMerge, "Gộp hồ sơ bị huỷ, dữ liệu nhóm giữ nguyên", StatusInternalServerError, nil)
	ErrUnknownJob   = NewError(ErrCodeReconcileJob, "Job đối soát không tồn tại", StatusNotFound, nil)
)

// WithDetails tạo bản sao của lỗi chuẩn kèm chi tiết. errors.Is vẫn khớp với lỗi gốc.
func WithDetails(base error, details any) error {
	var e *Error
	if !errors.As(base, &e) {
		return base
	}
	return NewError(e.Code, e.Message, e.StatusCode, details)
}

// MongoDB Specific Errors
var (
	ErrMongoConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoNetwork    = NewError(ErrCodeDatabaseConnection, "Lỗi mạng khi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoTimeout    = NewError(ErrCodeDatabaseConnection, "Kết nối MongoDB bị timeout", StatusServiceUnavailable, nil)
	ErrMongoQuery      = NewError(ErrCodeDatabaseQuery, "Lỗi truy vấn MongoDB", StatusInternalServerError, nil)
	ErrMongoWrite      = NewError(ErrCodeDatabaseQuery, "Lỗi ghi dữ liệu MongoDB", StatusInternalServerError, nil)
	ErrMongoDuplicate  = NewError(ErrCodeDatabaseQuery, "Dữ liệu trùng lặp trong MongoDB", StatusConflict, nil)
	ErrMongoSystem     = NewError(ErrCodeDatabase, "Lỗi hệ thống MongoDB", StatusInternalServerError, nil)
	ErrMongoNoTxn      = NewError(ErrCodeDatabase, "MongoDB không hỗ trợ transaction (cần replica set)", StatusInternalServerError, nil)
)

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 20: IllegalOperation - transaction trên standalone server
		if cmdErr.Code == 20 {
			return WithDetails(ErrMongoNoTxn, err)
		}
		switch {
		case cmdErr.Code >= 100 && cmdErr.Code < 200:
			return WithDetails(ErrMongoConnection, err)
		case cmdErr.Code >= 300 && cmdErr.Code < 400:
			return WithDetails(ErrMongoQuery, err)
		case cmdErr.Code >= 400 && cmdErr.Code < 500:
			return WithDetails(ErrMongoWrite, err)
		}
	}

	if mongo.IsDuplicateKeyError(err) {
		return WithDetails(ErrMongoDuplicate, err)
	}
	if mongo.IsNetworkError(err) {
		return WithDetails(ErrMongoNetwork, err)
	}
	if mongo.IsTimeout(err) {
		return WithDetails(ErrMongoTimeout, err)
	}

	return NewError(ErrCodeDatabase, "Lỗi cơ sở dữ liệu", StatusInternalServerError, err)
}
