package reconcilesvc

import (
	"sort"
	"strings"
	"time"

	"data_hub/internal/api/reconcile/models"
)

// ExternalAgentID id của bucket không khớp nhân viên nào
const ExternalAgentID = "ext"

// TeamReportOptions khoảng ngày tham gia (join date) của khách; zero = không giới hạn
type TeamReportOptions struct {
	From time.Time
	To   time.Time
	// Now ngày dùng cho hồ sơ không có join_date lẫn created_at
	Now time.Time
}

// AgentStats chỉ số của một nhân viên (hoặc một nhãn ngoài)
type AgentStats struct {
	EmployeeID     string  `json:"id"`
	Name           string  `json:"name"`
	FullName       string  `json:"fullName,omitempty"`
	Revenue        float64 `json:"revenue"`
	Leads          int     `json:"leads"`
	Customers      int     `json:"customers"`
	ConversionRate float64 `json:"conversionRate"` // phần trăm
	AvgOrderValue  float64 `json:"avgOrderValue"`
}

// TeamReport kết quả tổng hợp theo nhân viên
type TeamReport struct {
	Agents []AgentStats `json:"agents"`
	// Claimed nhãn agent thô -> id nhân viên đã nhận nhãn đó
	Claimed      map[string]string `json:"claimed"`
	Unmatched    []string          `json:"unmatched,omitempty"`
	TotalRevenue float64           `json:"totalRevenue"`
	TotalLeads   int               `json:"totalLeads"`
}

// BuildTeamReport tổng hợp doanh thu/lead/khách theo nhân viên phụ trách.
// Nhân viên Active luôn có dòng (kể cả bằng 0); nhãn không khớp tạo dòng riêng với id "ext".
// Doanh thu của khách = tổng giá trị đơn, nếu không có đơn thì total_spend.
func BuildTeamReport(roster *Roster, profiles []models.CustomerProfile, opts TeamReportOptions) TeamReport {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	buckets := make(map[string]*AgentStats)
	var order []string
	bucket := func(name string, seed AgentStats) *AgentStats {
		if b, ok := buckets[name]; ok {
			return b
		}
		seed.Name = name
		buckets[name] = &seed
		order = append(order, name)
		return buckets[name]
	}
	for _, e := range roster.Employees() {
		bucket(e.DisplayName(), AgentStats{EmployeeID: e.ID, FullName: e.FullName()})
	}

	report := TeamReport{Claimed: map[string]string{}}
	unmatched := map[string]struct{}{}

	for _, p := range profiles {
		joined := profileJoinDate(p, now)
		if !opts.From.IsZero() && joined.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && joined.After(opts.To) {
			continue
		}

		label := strings.TrimSpace(p.Profile.Agent)
		if label == "" {
			label = SentinelUnassigned
		}
		var stats *AgentStats
		if res := roster.Resolve(label); res.Matched {
			emp, _ := roster.Employee(res.EmployeeID)
			stats = bucket(emp.DisplayName(), AgentStats{EmployeeID: emp.ID, FullName: emp.FullName()})
			report.Claimed[label] = emp.ID
		} else {
			stats = bucket(label, AgentStats{EmployeeID: ExternalAgentID})
			if !roster.IsSentinel(label) {
				unmatched[label] = struct{}{}
			}
		}

		stats.Leads++
		report.TotalLeads++
		revenue := profileRevenue(p)
		if revenue > 0 {
			stats.Revenue += revenue
			stats.Customers++
			report.TotalRevenue += revenue
		}
	}

	for _, name := range order {
		s := buckets[name]
		if s.Leads > 0 {
			s.ConversionRate = float64(s.Customers) / float64(s.Leads) * 100
		}
		if s.Customers > 0 {
			s.AvgOrderValue = s.Revenue / float64(s.Customers)
		}
		report.Agents = append(report.Agents, *s)
	}
	sort.SliceStable(report.Agents, func(i, j int) bool {
		if report.Agents[i].Revenue != report.Agents[j].Revenue {
			return report.Agents[i].Revenue > report.Agents[j].Revenue
		}
		return report.Agents[i].Name < report.Agents[j].Name
	})
	for label := range unmatched {
		report.Unmatched = append(report.Unmatched, label)
	}
	sort.Strings(report.Unmatched)
	return report
}

// profileJoinDate join_date, nếu trống thì created_at, cuối cùng là now
func profileJoinDate(p models.CustomerProfile, now time.Time) time.Time {
	if t, ok := ParseEventDate(p.Profile.JoinDate); ok {
		return t
	}
	if t, ok := ParseEventDate(p.CreatedAt); ok {
		return t
	}
	return now
}

func profileRevenue(p models.CustomerProfile) float64 {
	if len(p.Orders) > 0 {
		total := 0.0
		for _, o := range p.Orders {
			total += o.Value()
		}
		return total
	}
	return p.Intelligence.Metrics.TotalSpend
}
