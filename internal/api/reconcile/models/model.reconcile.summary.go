package models

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// RunSummary kết quả một lần chạy job, in ra stdout (CLI) hoặc trả qua API.
// Skipped/Failed/Notes đếm theo lý do để vận hành phân loại mà không cần đọc log.
type RunSummary struct {
	RunID       string         `json:"runId"`
	Job         string         `json:"job"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	DryRun      bool           `json:"dryRun,omitempty"`
	Considered  int            `json:"considered"`
	Succeeded   int            `json:"succeeded"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	Failed      map[string]int `json:"failed,omitempty"`
	Notes       map[string]int `json:"notes,omitempty"`
	Unresolved  []string       `json:"unresolved,omitempty"`
	Ambiguous   []string       `json:"ambiguous,omitempty"`
	Interrupted bool           `json:"interrupted,omitempty"`

	unresolvedSet map[string]struct{}
	ambiguousSet  map[string]struct{}
}

// NewRunSummary tạo summary cho job
func NewRunSummary(job, runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		Job:       job,
		StartedAt: startedAt,
		Skipped:   map[string]int{},
		Failed:    map[string]int{},
		Notes:     map[string]int{},
	}
}

// Skip đếm một entity bị bỏ qua theo lý do
func (s *RunSummary) Skip(reason string) { s.Skipped[reason]++ }

// Fail đếm một entity thất bại theo lý do
func (s *RunSummary) Fail(reason string) { s.Failed[reason]++ }

// Note đếm một ghi chú (ví dụ: fallback, ambiguous)
func (s *RunSummary) Note(key string) { s.Notes[key]++ }

// AddUnresolved ghi nhận tên không khớp nhân viên nào (không trùng lặp)
func (s *RunSummary) AddUnresolved(name string) {
	if s.unresolvedSet == nil {
		s.unresolvedSet = map[string]struct{}{}
	}
	if _, ok := s.unresolvedSet[name]; ok {
		return
	}
	s.unresolvedSet[name] = struct{}{}
	s.Unresolved = append(s.Unresolved, name)
}

// AddAmbiguous ghi nhận tên khớp nhiều nhân viên (không trùng lặp)
func (s *RunSummary) AddAmbiguous(name string) {
	if s.ambiguousSet == nil {
		s.ambiguousSet = map[string]struct{}{}
	}
	if _, ok := s.ambiguousSet[name]; ok {
		return
	}
	s.ambiguousSet[name] = struct{}{}
	s.Ambiguous = append(s.Ambiguous, name)
}

// TotalFailed tổng số thất bại
func (s *RunSummary) TotalFailed() int {
	total := 0
	for _, n := range s.Failed {
		total += n
	}
	return total
}

// TotalSkipped tổng số bị bỏ qua
func (s *RunSummary) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Finish đóng summary, sắp xếp danh sách tên
func (s *RunSummary) Finish(at time.Time) {
	s.FinishedAt = at
	sort.Strings(s.Unresolved)
	sort.Strings(s.Ambiguous)
}

// Print in summary dạng người đọc được
func (s *RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "== %s (run %s) ==\n", s.Job, s.RunID)
	if s.DryRun {
		fmt.Fprintln(w, "mode:        dry-run (no writes)")
	}
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(w, "duration:    %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "considered:  %d\n", s.Considered)
	fmt.Fprintf(w, "succeeded:   %d\n", s.Succeeded)
	fmt.Fprintf(w, "skipped:     %d\n", s.TotalSkipped())
	printCounts(w, s.Skipped)
	fmt.Fprintf(w, "failed:      %d\n", s.TotalFailed())
	printCounts(w, s.Failed)
	if len(s.Notes) > 0 {
		fmt.Fprintln(w, "notes:")
		printCounts(w, s.Notes)
	}
	if len(s.Unresolved) > 0 {
		fmt.Fprintf(w, "unresolved names (%d): %s\n", len(s.Unresolved), strings.Join(s.Unresolved, ", "))
	}
	if len(s.Ambiguous) > 0 {
		fmt.Fprintf(w, "ambiguous names (%d): %s\n", len(s.Ambiguous), strings.Join(s.Ambiguous, ", "))
	}
	if s.Interrupted {
		fmt.Fprintln(w, "interrupted: true (progress already written is kept)")
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  - %s: %d\n", k, counts[k])
	}
}
