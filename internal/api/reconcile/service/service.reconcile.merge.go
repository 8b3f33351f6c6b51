package reconcilesvc

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"data_hub/internal/api/reconcile/models"
)

// Mặc định của merger
const (
	DefaultCanonicalMarker     = "WB"
	DefaultFacebookEmailDomain = "facebook.com"
)

// MergeOptions cấu hình Profile Merger
type MergeOptions struct {
	// Markers chuỗi đánh dấu nguồn tin cậy cao trong id hồ sơ, theo thứ tự ưu tiên
	Markers []string
	// EmailDomain domain email dạng local@facebook.com dùng để suy ra id kênh ngoài
	EmailDomain string
}

// DefaultMergeOptions trả về cấu hình mặc định
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		Markers:     []string{DefaultCanonicalMarker},
		EmailDomain: DefaultFacebookEmailDomain,
	}
}

// ExtractExternalID lấy id kênh ngoài theo thứ tự: contact_info.facebook_id,
// social_profiles.facebook.id, facebook_id, rồi phần local của email local@<emailDomain>.
// Trả về "" nếu không xác định được (hồ sơ bị loại khỏi việc gộp).
func ExtractExternalID(p models.CustomerProfile, emailDomain string) string {
	if id := strings.TrimSpace(p.ContactInfo.FacebookID.String()); id != "" {
		return id
	}
	if p.SocialProfiles != nil && p.SocialProfiles.Facebook != nil {
		if id := strings.TrimSpace(p.SocialProfiles.Facebook.ID.String()); id != "" {
			return id
		}
	}
	if id := strings.TrimSpace(p.FacebookID.String()); id != "" {
		return id
	}
	if emailDomain == "" {
		emailDomain = DefaultFacebookEmailDomain
	}
	email := strings.TrimSpace(p.ContactInfo.Email)
	suffix := "@" + strings.ToLower(emailDomain)
	if strings.HasSuffix(strings.ToLower(email), suffix) {
		return strings.TrimSpace(email[:len(email)-len(suffix)])
	}
	return ""
}

// GroupByExternalID nhóm hồ sơ theo id kênh ngoài. Hồ sơ không có id bị loại và được đếm.
// Thứ tự trong mỗi nhóm giữ nguyên thứ tự đầu vào.
func GroupByExternalID(profiles []models.CustomerProfile, emailDomain string) (map[string][]models.CustomerProfile, int) {
	groups := make(map[string][]models.CustomerProfile)
	excluded := 0
	for _, p := range profiles {
		key := ExtractExternalID(p, emailDomain)
		if key == "" {
			excluded++
			continue
		}
		groups[key] = append(groups[key], p)
	}
	return groups, excluded
}

// SortedGroupKeys khoá nhóm theo thứ tự tăng dần
func SortedGroupKeys(groups map[string][]models.CustomerProfile) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func markerRank(id string, markers []string) int {
	for i, m := range markers {
		if m != "" && strings.Contains(id, m) {
			return i
		}
	}
	return len(markers)
}

// OrderForMerge sắp xếp nhóm: hồ sơ có marker ưu tiên cao hơn đứng trước, còn lại theo id tăng dần.
// Đây là thứ tự toàn phần nên chạy lại luôn chọn cùng canonical.
func OrderForMerge(profiles []models.CustomerProfile, markers []string) []models.CustomerProfile {
	out := append([]models.CustomerProfile(nil), profiles...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := markerRank(out[i].ID, markers), markerRank(out[j].ID, markers)
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SelectCanonical trả về hồ sơ canonical của nhóm
func SelectCanonical(profiles []models.CustomerProfile, markers []string) (models.CustomerProfile, bool) {
	if len(profiles) == 0 {
		return models.CustomerProfile{}, false
	}
	return OrderForMerge(profiles, markers)[0], true
}

// MergeDuplicateProfiles gộp một nhóm thành canonical; losers là các hồ sơ còn lại theo thứ tự gộp
func MergeDuplicateProfiles(profiles []models.CustomerProfile, markers []string) (canonical models.CustomerProfile, losers []models.CustomerProfile) {
	if len(profiles) == 0 {
		return models.CustomerProfile{}, nil
	}
	ordered := OrderForMerge(profiles, markers)
	canonical = cloneProfile(ordered[0])
	for _, other := range ordered[1:] {
		canonical = MergeProfiles(canonical, other)
	}
	return canonical, ordered[1:]
}

// MergeProfiles gộp other vào base (base ⊕ other), không sửa đầu vào.
//
//   - agent, phone, email: chỉ điền khi base trống
//   - orders, transactions, tags, learning_courses: hợp theo khoá tự nhiên, giữ thứ tự của base
//     rồi thêm phần tử mới theo thứ tự gặp
//   - total_spend, total_order: lấy max (bộ đếm cộng dồn, không cộng)
//   - timeline: hợp theo (id, date) rồi sắp xếp ổn định tăng dần theo ngày; ngày không đọc được xếp cuối
func MergeProfiles(base, other models.CustomerProfile) models.CustomerProfile {
	out := cloneProfile(base)

	if strings.TrimSpace(out.Profile.Agent) == "" && strings.TrimSpace(other.Profile.Agent) != "" {
		out.Profile.Agent = other.Profile.Agent
	}

	out.Orders = unionBy(out.Orders, other.Orders, func(o models.ProfileOrder) string { return o.OrderID.String() })
	out.Transactions = unionBy(out.Transactions, other.Transactions, func(t models.Transaction) string { return t.TransactionID.String() })
	out.Intelligence.Tags = unionBy(out.Intelligence.Tags, other.Intelligence.Tags, func(tag string) string { return tag })
	out.Inventory.LearningCourses = unionBy(out.Inventory.LearningCourses, other.Inventory.LearningCourses, func(e models.Entitlement) string { return e.ID.String() })

	if other.Intelligence.Metrics.TotalSpend > out.Intelligence.Metrics.TotalSpend {
		out.Intelligence.Metrics.TotalSpend = other.Intelligence.Metrics.TotalSpend
	}
	if other.Intelligence.Metrics.TotalOrder > out.Intelligence.Metrics.TotalOrder {
		out.Intelligence.Metrics.TotalOrder = other.Intelligence.Metrics.TotalOrder
	}

	if len(other.Timeline) > 0 {
		out.Timeline = unionBy(out.Timeline, other.Timeline, func(e models.TimelineEvent) string {
			return e.ID.String() + "\x00" + e.Date
		})
		SortTimeline(out.Timeline)
	}

	if strings.TrimSpace(out.ContactInfo.PhonePrimary) == "" && strings.TrimSpace(other.ContactInfo.PhonePrimary) != "" {
		out.ContactInfo.PhonePrimary = other.ContactInfo.PhonePrimary
	}
	if strings.TrimSpace(out.ContactInfo.Email) == "" && strings.TrimSpace(other.ContactInfo.Email) != "" {
		out.ContactInfo.Email = other.ContactInfo.Email
	}
	return out
}

// unionBy thêm các phần tử của add chưa có trong base theo key.
// Phần tử có key rỗng chỉ bị coi là trùng khi giống hệt một phần tử đã có.
func unionBy[T any](base, add []T, key func(T) string) []T {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(add))
	var keyless []T
	for _, item := range base {
		if k := key(item); k != "" {
			seen[k] = struct{}{}
		} else {
			keyless = append(keyless, item)
		}
	}
	for _, item := range add {
		k := key(item)
		if k == "" {
			if containsEqual(keyless, item) {
				continue
			}
			keyless = append(keyless, item)
			base = append(base, item)
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		base = append(base, item)
	}
	return base
}

func containsEqual[T any](items []T, item T) bool {
	for _, x := range items {
		if reflect.DeepEqual(x, item) {
			return true
		}
	}
	return false
}

var timelineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventDate đọc ngày của sự kiện/hồ sơ theo các định dạng dữ liệu cũ
func ParseEventDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timelineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortTimeline sắp xếp ổn định tăng dần theo ngày, ngày không đọc được xếp cuối
func SortTimeline(events []models.TimelineEvent) {
	type keyed struct {
		at time.Time
		ok bool
	}
	keys := make(map[int]keyed, len(events))
	idx := make([]int, len(events))
	for i, e := range events {
		t, ok := ParseEventDate(e.Date)
		keys[i] = keyed{at: t, ok: ok}
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		if !ka.ok {
			return false
		}
		return ka.at.Before(kb.at)
	})
	sorted := make([]models.TimelineEvent, len(events))
	for i, j := range idx {
		sorted[i] = events[j]
	}
	copy(events, sorted)
}

// cloneProfile sao chép các slice mà merge có thể thay đổi
func cloneProfile(p models.CustomerProfile) models.CustomerProfile {
	out := p
	out.Orders = append([]models.ProfileOrder(nil), p.Orders...)
	out.Transactions = append([]models.Transaction(nil), p.Transactions...)
	out.Intelligence.Tags = append([]string(nil), p.Intelligence.Tags...)
	out.Inventory.LearningCourses = append([]models.Entitlement(nil), p.Inventory.LearningCourses...)
	out.Timeline = append([]models.TimelineEvent(nil), p.Timeline...)
	return out
}
