// Package reconciledto - input/output của API đối soát.
package reconciledto

import (
	"time"

	"data_hub/internal/common"
	"data_hub/internal/global"
)

// DateLayout định dạng ngày trong query
const DateLayout = "2006-01-02"

// ResolveQuery GET /reconcile/resolve?name=
type ResolveQuery struct {
	Name string `query:"name" validate:"required,no_blank"`
}

// TeamReportQuery GET /reconcile/team-report?from=&to= (ngày tham gia của khách, bao gồm hai đầu)
type TeamReportQuery struct {
	From string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Range parse from/to; to là ngày cuối cùng được tính nên cộng thêm gần một ngày
func (q TeamReportQuery) Range() (from, to time.Time, err error) {
	if err := global.Struct(q); err != nil {
		return time.Time{}, time.Time{}, common.WithDetails(common.ErrInvalidInput, err.Error())
	}
	if q.From != "" {
		from, _ = time.Parse(DateLayout, q.From)
	}
	if q.To != "" {
		to, _ = time.Parse(DateLayout, q.To)
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, common.WithDetails(common.ErrInvalidInput, "to phải sau from")
	}
	return from, to, nil
}

// AdsChatQuery GET /reconcile/ads-chat?period=
type AdsChatQuery struct {
	Period string `query:"period" validate:"required,period"`
}

// ResolveResult kết quả tra tên
type ResolveResult struct {
	Name       string   `json:"name"`
	EmployeeID string   `json:"employeeId,omitempty"`
	Matched    bool     `json:"matched"`
	Ignored    bool     `json:"ignored,omitempty"`
	Ambiguous  bool     `json:"ambiguous,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}
