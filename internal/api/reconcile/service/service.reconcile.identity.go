package reconcilesvc

import (
	"strings"
	"unicode/utf8"

	"data_hub/internal/api/reconcile/models"
)

// Mặc định của resolver
const (
	DefaultMinSubstringLength = 0
	SentinelUnassigned        = "Unassigned"
)

// ResolverOptions cấu hình Identity Resolver
type ResolverOptions struct {
	// Sentinels các nhãn không phải nhân viên (Unassigned, tên page). So sánh không phân biệt hoa thường.
	Sentinels []string
	// MinSubstringLength độ dài tối thiểu (tính theo rune) của chuỗi bị chứa khi khớp một phần.
	// Khớp chính xác không bị giới hạn. 0 = khớp một phần với mọi độ dài.
	MinSubstringLength int
}

// DefaultResolverOptions trả về cấu hình mặc định
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		Sentinels:          []string{SentinelUnassigned},
		MinSubstringLength: DefaultMinSubstringLength,
	}
}

type rosterEntry struct {
	employee models.Employee
	names    []string
}

// Roster danh sách nhân viên Active đã chuẩn hoá, bất biến sau khi tạo.
// Nạp một lần mỗi lần chạy và dùng lại cho mọi lần resolve.
type Roster struct {
	entries   []rosterEntry
	byID      map[string]int
	sentinels map[string]struct{}
	minSub    int
}

// Resolution kết quả resolve một tên
type Resolution struct {
	EmployeeID string
	Matched    bool
	// Ignored tên rỗng hoặc là nhãn sentinel: không phải lỗi, không cần triage
	Ignored bool
	// Candidates mọi nhân viên thoả điều kiện, theo thứ tự roster. Nhiều hơn một = tên mơ hồ.
	Candidates []string
}

// Ambiguous tên khớp nhiều hơn một nhân viên
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// normalizeName chữ thường, bỏ khoảng trắng đầu cuối và gộp khoảng trắng liên tiếp
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NewRoster giữ lại nhân viên Active theo thứ tự đầu vào và tính sẵn tập tên ứng viên:
// facebookName, nickName, firstName, "first last" và các alias.
func NewRoster(employees []models.Employee, opts ResolverOptions) *Roster {
	r := &Roster{
		byID:      make(map[string]int),
		sentinels: make(map[string]struct{}),
		minSub:    opts.MinSubstringLength,
	}
	if r.minSub < 0 {
		r.minSub = 0
	}
	for _, s := range opts.Sentinels {
		if n := normalizeName(s); n != "" {
			r.sentinels[n] = struct{}{}
		}
	}

	for _, e := range employees {
		if !e.IsActive() {
			continue
		}
		raw := []string{e.FacebookName, e.NickName, e.FirstName}
		if strings.TrimSpace(e.FirstName) != "" || strings.TrimSpace(e.LastName) != "" {
			raw = append(raw, e.FullName())
		}
		raw = append(raw, e.Aliases...)

		seen := make(map[string]struct{}, len(raw))
		names := make([]string, 0, len(raw))
		for _, v := range raw {
			n := normalizeName(v)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}

		employee := e
		employee.Aliases = append([]string(nil), e.Aliases...)
		r.byID[e.ID] = len(r.entries)
		r.entries = append(r.entries, rosterEntry{employee: employee, names: names})
	}
	return r
}

// Len số nhân viên Active trong roster
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Employees bản sao danh sách nhân viên theo thứ tự roster
func (r *Roster) Employees() []models.Employee {
	if r == nil {
		return nil
	}
	out := make([]models.Employee, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.employee)
	}
	return out
}

// Employee tra nhân viên theo id
func (r *Roster) Employee(id string) (models.Employee, bool) {
	if r == nil {
		return models.Employee{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return models.Employee{}, false
	}
	return r.entries[i].employee, true
}

// IsSentinel tên là nhãn không phải nhân viên
func (r *Roster) IsSentinel(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.sentinels[normalizeName(name)]
	return ok
}

// Resolve tìm nhân viên cho một tên tự do.
// Khớp khi tên bằng một tên ứng viên, chứa tên ứng viên, hoặc nằm trong tên ứng viên.
// Nhân viên đầu tiên theo thứ tự roster thắng; mọi nhân viên khớp được trả về trong Candidates.
func (r *Roster) Resolve(name string) Resolution {
	input := normalizeName(name)
	if input == "" || r == nil {
		return Resolution{Ignored: true}
	}
	if _, ok := r.sentinels[input]; ok {
		return Resolution{Ignored: true}
	}

	inputLen := utf8.RuneCountInString(input)
	var res Resolution
	for _, entry := range r.entries {
		if !r.matches(entry.names, input, inputLen) {
			continue
		}
		if !res.Matched {
			res.Matched = true
			res.EmployeeID = entry.employee.ID
		}
		res.Candidates = append(res.Candidates, entry.employee.ID)
	}
	return res
}

func (r *Roster) matches(names []string, input string, inputLen int) bool {
	for _, candidate := range names {
		if candidate == input {
			return true
		}
		candidateLen := utf8.RuneCountInString(candidate)
		if candidateLen >= r.minSub && strings.Contains(input, candidate) {
			return true
		}
		if inputLen >= r.minSub && strings.Contains(candidate, input) {
			return true
		}
	}
	return false
}

// ResolveEmployeeID trả về id nhân viên khớp với name, hoặc ("", false).
// Tên rỗng, chỉ có khoảng trắng hoặc là sentinel luôn trả về ("", false).
func ResolveEmployeeID(roster *Roster, name string) (string, bool) {
	res := roster.Resolve(name)
	return res.EmployeeID, res.Matched
}
