package reconcilesvc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"data_hub/internal/common"
)

// ReportService các thao tác chỉ đọc: tra tên, báo cáo đội ngũ, đối soát quảng cáo/chat.
// AdsChat có thể nil nếu store không có dữ liệu insight.
type ReportService struct {
	Employees    EmployeeStore
	Profiles     ProfileStore
	AdsChat      AdsChatSource
	Resolver     ResolverOptions
	AdsChatRules AdsChatRules
	Now          func() time.Time
}

// Roster nạp roster nhân viên Active
func (s *ReportService) Roster(ctx context.Context) (*Roster, error) {
	employees, err := s.Employees.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return NewRoster(employees, s.Resolver), nil
}

// ResolveName tra một tên tự do
func (s *ReportService) ResolveName(ctx context.Context, name string) (Resolution, error) {
	roster, err := s.Roster(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return roster.Resolve(name), nil
}

// TeamReport báo cáo doanh thu theo nhân viên
func (s *ReportService) TeamReport(ctx context.Context, opts TeamReportOptions) (TeamReport, error) {
	if s.Profiles == nil {
		return TeamReport{}, common.WithDetails(common.ErrConfiguration, "store không có hồ sơ khách hàng")
	}
	roster, err := s.Roster(ctx)
	if err != nil {
		return TeamReport{}, err
	}
	profiles, err := s.Profiles.ListCustomerProfiles(ctx)
	if err != nil {
		return TeamReport{}, fmt.Errorf("list customer profiles: %w", err)
	}
	if opts.Now.IsZero() {
		opts.Now = clock(s.Now)
	}
	return BuildTeamReport(roster, profiles, opts), nil
}

// AdsChatReport đối soát insight quảng cáo với hội thoại của kỳ period
func (s *ReportService) AdsChatReport(ctx context.Context, period string) (AdsChatReport, error) {
	if s.AdsChat == nil {
		return AdsChatReport{}, common.WithDetails(common.ErrConfiguration, "store không có dữ liệu quảng cáo/chat")
	}
	if strings.TrimSpace(period) == "" {
		return AdsChatReport{}, common.WithDetails(common.ErrRequiredField, "period")
	}
	days, err := s.AdsChat.LoadCampaignDays(ctx, period)
	if err != nil {
		return AdsChatReport{}, fmt.Errorf("load campaign days: %w", err)
	}
	threads, err := s.AdsChat.LoadChatThreads(ctx)
	if err != nil {
		return AdsChatReport{}, fmt.Errorf("load chat threads: %w", err)
	}
	rules := s.AdsChatRules
	rules.Period = period
	return ReconcileAdsChats(days, threads, rules), nil
}

// Print in báo cáo đội ngũ dạng bảng
func (r TeamReport) Print(w io.Writer) {
	fmt.Fprintf(w, "%-24s %-10s %12s %6s %9s %8s %12s\n", "agent", "id", "revenue", "leads", "customers", "conv%", "aov")
	for _, a := range r.Agents {
		fmt.Fprintf(w, "%-24s %-10s %12.2f %6d %9d %8.1f %12.2f\n",
			a.Name, a.EmployeeID, a.Revenue, a.Leads, a.Customers, a.ConversionRate, a.AvgOrderValue)
	}
	fmt.Fprintf(w, "total revenue: %.2f, total leads: %d\n", r.TotalRevenue, r.TotalLeads)
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(w, "unmatched labels (%d): %s\n", len(r.Unmatched), strings.Join(r.Unmatched, ", "))
	}
}

// Print in báo cáo quảng cáo/chat
func (r AdsChatReport) Print(w io.Writer) {
	fmt.Fprintf(w, "== campaigns (%s) ==\n", r.Period)
	for _, c := range r.Campaigns {
		fmt.Fprintf(w, "%-40s spend=%.2f msg_start=%.0f clicks=%.0f purchases=%.0f value=%.2f\n",
			c.Name, c.Spend, c.MessagingConnections, c.Clicks, c.Purchases, c.PurchaseValue)
	}
	fmt.Fprintf(w, "== chats ==\nactive chats:     %d\ncampaign matches: %d\nsales candidates: %d\n",
		r.ActiveChats, len(r.Matches), len(r.Candidates))
	for _, m := range r.Matches {
		fmt.Fprintf(w, "- customer %s [%s %s] payment=%t\n", m.CustomerID, m.Campaign, m.MatchType, m.Payment)
	}
	for _, c := range r.Candidates {
		fmt.Fprintf(w, "\ncustomer %s [%s]\n", c.CustomerID, c.Confidence)
		if c.HistoryFrom != "" {
			fmt.Fprintf(w, "  history: %s to %s\n", c.HistoryFrom, c.HistoryTo)
		}
		for _, p := range c.Payments {
			if p.Amount > 0 {
				fmt.Fprintf(w, "  - [%s] %q -> amount: %.0f\n", p.At, p.Excerpt, p.Amount)
			} else {
				fmt.Fprintf(w, "  - [%s] %q (payment keyword, no amount)\n", p.At, p.Excerpt)
			}
		}
		fmt.Fprintf(w, "  => estimated total paid: %.0f\n", c.EstimatedTotal)
	}
}
