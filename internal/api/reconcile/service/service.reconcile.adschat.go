package reconcilesvc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"data_hub/internal/api/reconcile/models"
)

// Action type của Graph API insights
const (
	ActionMessagingConnection = "onsite_conversion.total_messaging_connection"
	ActionOmniPurchase        = "omni_purchase"
	ActionPurchase            = "purchase"
)

// Loại khớp keyword chiến dịch trong hội thoại
const (
	MatchAdminContext    = "admin_context"
	MatchCustomerKeyword = "customer_keyword"
)

// Độ tin cậy của ứng viên đơn bán
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Giới hạn số tiền hợp lệ trong tin nhắn thanh toán (loại trừ hai đầu)
const (
	minPaymentAmount = 100
	maxPaymentAmount = 50000
	excerptRunes     = 50
)

var amountPattern = regexp.MustCompile(`[\d,]{3,5}`)

// CampaignRule bộ keyword nhận diện một chiến dịch trong chat
type CampaignRule struct {
	Name     string   `yaml:"name" json:"name" validate:"required,no_blank"`
	Keywords []string `yaml:"keywords" json:"keywords" validate:"required,min=1,dive,no_blank"`
}

// AdsChatRules cấu hình đối soát quảng cáo và chat
type AdsChatRules struct {
	// Period tiền tố ngày: "2026-02" hoặc "2026-02-14"
	Period    string
	PageID    string
	PageName  string
	Campaigns []CampaignRule
	// PaymentKeywords keyword cho thấy khách đã thanh toán
	PaymentKeywords []string
	// AmountKeywords keyword bổ sung khi quét số tiền từng tin nhắn (deposit, มัดจำ)
	AmountKeywords []string
}

// CampaignStats tổng hợp insight của một campaign trong kỳ
type CampaignStats struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Spend                float64 `json:"spend"`
	Clicks               float64 `json:"clicks"`
	MessagingConnections float64 `json:"messagingConnections"`
	Purchases            float64 `json:"purchases"`
	PurchaseValue        float64 `json:"purchaseValue"`
}

// ChatMatch hội thoại khớp keyword chiến dịch
type ChatMatch struct {
	CustomerID string `json:"customerId"`
	File       string `json:"file"`
	Campaign   string `json:"campaign"`
	MatchType  string `json:"matchType"`
	Payment    bool   `json:"payment"`
}

// PaymentEvidence một tin nhắn thanh toán; Amount = 0 nếu không đọc được số tiền
type PaymentEvidence struct {
	At      string  `json:"at"`
	Excerpt string  `json:"excerpt"`
	Amount  float64 `json:"amount,omitempty"`
}

// SalesCandidate khách có dấu hiệu đã mua
type SalesCandidate struct {
	CustomerID     string            `json:"customerId"`
	File           string            `json:"file"`
	Campaign       string            `json:"campaign,omitempty"`
	Confidence     string            `json:"confidence"`
	HistoryFrom    string            `json:"historyFrom,omitempty"`
	HistoryTo      string            `json:"historyTo,omitempty"`
	Payments       []PaymentEvidence `json:"payments,omitempty"`
	EstimatedTotal float64           `json:"estimatedTotal"`
}

// AdsChatReport kết quả đối soát của một kỳ
type AdsChatReport struct {
	Period      string           `json:"period"`
	Campaigns   []CampaignStats  `json:"campaigns"`
	ActiveChats int              `json:"activeChats"`
	Matches     []ChatMatch      `json:"matches"`
	Candidates  []SalesCandidate `json:"candidates"`
}

// AggregateCampaigns cộng dồn insight theo campaign id, sắp xếp theo id
func AggregateCampaigns(days []models.CampaignDay) []CampaignStats {
	byID := make(map[string]*CampaignStats)
	for _, day := range days {
		for _, c := range day.Campaigns {
			s, ok := byID[c.ID]
			if !ok {
				s = &CampaignStats{ID: c.ID, Name: c.Name}
				byID[c.ID] = s
			}
			s.Spend += c.Spend.Float64()
			s.Clicks += c.Clicks.Float64()
			if v, ok := findAction(c.Actions, ActionMessagingConnection); ok {
				s.MessagingConnections += v
			}
			if v, ok := findAction(c.Actions, ActionOmniPurchase, ActionPurchase); ok {
				s.Purchases += v
			}
			if v, ok := findAction(c.ActionValues, ActionOmniPurchase, ActionPurchase); ok {
				s.PurchaseValue += v
			}
		}
	}
	out := make([]CampaignStats, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// findAction giá trị của action đầu tiên có type thuộc types
func findAction(actions []models.ActionValue, types ...string) (float64, bool) {
	for _, a := range actions {
		for _, t := range types {
			if a.ActionType == t {
				return a.Value.Float64(), true
			}
		}
	}
	return 0, false
}

// ReconcileAdsChats tổng hợp insight quảng cáo và phân loại hội thoại có hoạt động trong kỳ.
//
// Hội thoại khớp chiến dịch khi toàn bộ text chứa keyword; nếu tin nhắn của page chứa keyword
// thì loại khớp là admin_context. Có keyword thanh toán: khớp chiến dịch = high, không khớp = low.
// Mỗi khách chỉ giữ một ứng viên, ưu tiên high.
func ReconcileAdsChats(days []models.CampaignDay, threads []models.ChatThread, rules AdsChatRules) AdsChatReport {
	report := AdsChatReport{
		Period:    rules.Period,
		Campaigns: AggregateCampaigns(days),
	}

	candidates := make(map[string]SalesCandidate)
	var candidateOrder []string

	for _, th := range threads {
		if !hasActivityIn(th.Messages, rules.Period) {
			continue
		}
		report.ActiveChats++

		allText, adminText := threadTexts(th.Messages, rules.PageID, rules.PageName)
		payment := containsAny(allText, rules.PaymentKeywords)

		campaign, matchType := classifyCampaign(allText, adminText, rules.Campaigns)
		if campaign != "" {
			report.Matches = append(report.Matches, ChatMatch{
				CustomerID: th.CustomerID,
				File:       th.File,
				Campaign:   campaign,
				MatchType:  matchType,
				Payment:    payment,
			})
		}
		if !payment {
			continue
		}

		confidence := ConfidenceLow
		if campaign != "" {
			confidence = ConfidenceHigh
		}
		existing, seen := candidates[th.CustomerID]
		if seen && !(existing.Confidence == ConfidenceLow && confidence == ConfidenceHigh) {
			continue
		}
		if !seen {
			candidateOrder = append(candidateOrder, th.CustomerID)
		}
		candidates[th.CustomerID] = buildCandidate(th, campaign, confidence, rules)
	}

	for _, id := range candidateOrder {
		report.Candidates = append(report.Candidates, candidates[id])
	}
	return report
}

func hasActivityIn(messages []models.ChatMessage, period string) bool {
	for _, m := range messages {
		if m.CreatedTime != "" && strings.HasPrefix(m.CreatedTime, period) {
			return true
		}
	}
	return false
}

// threadTexts text chữ thường của cả hội thoại và của riêng tin nhắn page
func threadTexts(messages []models.ChatMessage, pageID, pageName string) (string, string) {
	all := make([]string, 0, len(messages))
	var admin []string
	for _, m := range messages {
		all = append(all, m.Message)
		if (pageID != "" && m.From.ID == pageID) || (pageName != "" && m.From.Name == pageName) {
			admin = append(admin, m.Message)
		}
	}
	return strings.ToLower(strings.Join(all, " ")), strings.ToLower(strings.Join(admin, " "))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// classifyCampaign chiến dịch khớp đầu tiên; ưu tiên chiến dịch được page nhắc tới
func classifyCampaign(allText, adminText string, campaigns []CampaignRule) (string, string) {
	for _, c := range campaigns {
		if containsAny(adminText, c.Keywords) {
			return c.Name, MatchAdminContext
		}
	}
	for _, c := range campaigns {
		if containsAny(allText, c.Keywords) {
			return c.Name, MatchCustomerKeyword
		}
	}
	return "", ""
}

func buildCandidate(th models.ChatThread, campaign, confidence string, rules AdsChatRules) SalesCandidate {
	c := SalesCandidate{
		CustomerID: th.CustomerID,
		File:       th.File,
		Campaign:   campaign,
		Confidence: confidence,
	}
	messages := sortChatMessages(th.Messages)
	if len(messages) > 0 {
		c.HistoryFrom = messages[0].CreatedTime
		c.HistoryTo = messages[len(messages)-1].CreatedTime
	}

	keywords := append(append([]string(nil), rules.PaymentKeywords...), rules.AmountKeywords...)
	periodYear := yearOf(rules.Period)
	for _, m := range messages {
		if !containsAny(strings.ToLower(m.Message), keywords) {
			continue
		}
		year := periodYear
		if year == 0 {
			year = yearOf(m.CreatedTime)
		}
		amount := EstimateAmount(m.Message, year)
		c.EstimatedTotal += amount
		c.Payments = append(c.Payments, PaymentEvidence{
			At:      m.CreatedTime,
			Excerpt: excerpt(m.Message),
			Amount:  amount,
		})
	}
	return c
}

// EstimateAmount số lớn nhất 3-5 ký tự (cho phép dấu phẩy) trong khoảng hợp lệ, khác năm excludeYear.
// Trả về 0 nếu không có.
func EstimateAmount(text string, excludeYear int) float64 {
	best := 0.0
	for _, raw := range amountPattern.FindAllString(text, -1) {
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			continue
		}
		if n <= minPaymentAmount || n >= maxPaymentAmount {
			continue
		}
		if excludeYear != 0 && n == float64(excludeYear) {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

func yearOf(s string) int {
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}

func excerpt(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s)
	if utf8.RuneCountInString(s) <= excerptRunes {
		return s
	}
	return string([]rune(s)[:excerptRunes])
}

var chatTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// sortChatMessages bản sao sắp xếp cũ trước mới sau; thời gian không đọc được xếp cuối
func sortChatMessages(in []models.ChatMessage) []models.ChatMessage {
	type keyed struct {
		msg models.ChatMessage
		at  time.Time
		ok  bool
	}
	items := make([]keyed, 0, len(in))
	for _, m := range in {
		k := keyed{msg: m}
		for _, layout := range chatTimeLayouts {
			if t, err := time.Parse(layout, m.CreatedTime); err == nil {
				k.at, k.ok = t, true
				break
			}
		}
		items = append(items, k)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].ok && items[i].at.Before(items[j].at)
	})
	out := make([]models.ChatMessage, len(items))
	for i, k := range items {
		out[i] = k.msg
	}
	return out
}
