// Package filestore - dữ liệu CRM cũ dạng thư mục JSON:
//
//	<root>/employee/<code>/*.json
//	<root>/customer/<id>/profile_<id>.json
//	<root>/customer/<id>/chathistory/*.json
//	<root>/marketing/logs/daily/YYYY/MM/*.json
//
// Hồ sơ bị gộp được chuyển nguyên thư mục sang <root>/<destination>/<id>.
// Store này không có tin nhắn/đơn hàng dạng bảng nên chỉ phục vụ merge, team report,
// alias sync và đối soát ads-chat.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

const (
	employeeDir  = "employee"
	customerDir  = "customer"
	chatDir      = "chathistory"
	campaignRoot = "marketing/logs/daily"
)

// Store đọc/ghi thư mục dữ liệu
type Store struct {
	root string
	mu   sync.Mutex
}

// Open kiểm tra thư mục gốc tồn tại
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "PROFILE_DATA_DIR is empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, common.WithDetails(common.ErrConnection, err)
	}
	if !info.IsDir() {
		return nil, common.WithDetails(common.ErrConfiguration, fmt.Sprintf("%s is not a directory", root))
	}
	return &Store{root: root}, nil
}

// Root thư mục gốc
func (s *Store) Root() string { return s.root }

// Close không giữ tài nguyên
func (s *Store) Close(ctx context.Context) error { return nil }

// Ping thư mục gốc còn truy cập được
func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, common.WithDetails(common.ErrInvalidFormat, err))
	}
	return nil
}

// writeJSON ghi qua file tạm rồi rename để không để lại file ghi dở
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// subdirs thư mục con, sắp theo tên
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// jsonFiles file .json trong dir, sắp theo tên
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// EmployeeStore

// employeeDoc file nhân viên; employeeId cũ có thể lưu dạng số
type employeeDoc struct {
	models.Employee
	EmployeeID models.FlexString `json:"employeeId"`
}

// employeeFile file JSON đầu tiên trong thư mục nhân viên
func (s *Store) employeeFile(folder string) (string, error) {
	dir := filepath.Join(s.root, employeeDir, folder)
	files, err := jsonFiles(dir)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return filepath.Join(dir, files[0]), nil
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	folders, err := subdirs(filepath.Join(s.root, employeeDir))
	if err != nil {
		return nil, err
	}
	var out []models.Employee
	for _, folder := range folders {
		path, err := s.employeeFile(folder)
		if err != nil {
			return nil, err
		}
		if path == "" {
			continue
		}
		var doc employeeDoc
		if err := readJSON(path, &doc); err != nil {
			logger.GetAppLogger().WithError(err).WithField("file", path).Warn("👤 [ROSTER] Bỏ qua file nhân viên lỗi")
			continue
		}
		e := doc.Employee
		e.ID = folder
		e.EmployeeCode = doc.EmployeeID.String()
		if e.EmployeeCode == "" {
			e.EmployeeCode = folder
		}
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpdateEmployeeAliases chỉ thay field aliases, các field khác của file giữ nguyên
func (s *Store) UpdateEmployeeAliases(ctx context.Context, employeeCode string, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := subdirs(filepath.Join(s.root, employeeDir))
	if err != nil {
		return err
	}
	for _, folder := range folders {
		path, err := s.employeeFile(folder)
		if err != nil {
			return err
		}
		if path == "" {
			continue
		}
		var doc map[string]json.RawMessage
		if err := readJSON(path, &doc); err != nil {
			continue
		}
		var code models.FlexString
		if raw, ok := doc["employeeId"]; ok {
			if err := json.Unmarshal(raw, &code); err != nil {
				logger.GetAppLogger().WithError(err).WithField("file", path).Warn("👤 [ALIAS] employeeId không đọc được, dùng tên thư mục")
			}
		}
		if code == "" {
			code = models.FlexString(folder)
		}
		if code.String() != employeeCode {
			continue
		}
		raw, err := json.Marshal(aliases)
		if err != nil {
			return err
		}
		doc["aliases"] = raw
		return writeJSON(path, doc)
	}
	return common.WithDetails(common.ErrNotFound, employeeCode)
}

// ProfileStore

// profilePath file hồ sơ của khách: profile_<id>.json, profile_*.json bất kỳ, hoặc profile.json
func (s *Store) profilePath(id string) (string, bool) {
	dir := filepath.Join(s.root, customerDir, id)
	preferred := filepath.Join(dir, "profile_"+id+".json")
	if _, err := os.Stat(preferred); err == nil {
		return preferred, true
	}
	files, _ := jsonFiles(dir)
	for _, f := range files {
		if strings.HasPrefix(f, "profile_") || f == "profile.json" {
			return filepath.Join(dir, f), true
		}
	}
	return preferred, false
}

func (s *Store) ListCustomerProfiles(ctx context.Context) ([]models.CustomerProfile, error) {
	folders, err := subdirs(filepath.Join(s.root, customerDir))
	if err != nil {
		return nil, err
	}
	var out []models.CustomerProfile
	for _, id := range folders {
		path, ok := s.profilePath(id)
		if !ok {
			continue
		}
		var p models.CustomerProfile
		if err := readJSON(path, &p); err != nil {
			logger.GetAppLogger().WithError(err).WithField("file", path).Warn("🔀 [MERGE] Bỏ qua hồ sơ không đọc được")
			continue
		}
		p.ID = id
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) PersistProfile(ctx context.Context, profile models.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(profile)
}

func (s *Store) persist(profile models.CustomerProfile) error {
	if profile.ID == "" {
		return common.WithDetails(common.ErrRequiredField, "profile id")
	}
	path, _ := s.profilePath(profile.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, profile)
}

func (s *Store) ArchiveProfile(ctx context.Context, profileID, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archive(profileID, destination)
}

// archive chuyển cả thư mục khách (kể cả chathistory) sang destination
func (s *Store) archive(profileID, destination string) error {
	src := filepath.Join(s.root, customerDir, profileID)
	if _, err := os.Stat(src); err != nil {
		return common.WithDetails(common.ErrNotFound, profileID)
	}
	dst := filepath.Join(s.root, destination, profileID)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// ApplyMerge archive loser rồi ghi canonical; lỗi thì chuyển các thư mục đã archive về chỗ cũ
// và khôi phục file canonical ban đầu.
func (s *Store) ApplyMerge(ctx context.Context, canonical models.CustomerProfile, loserIDs []string, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, existed := s.profilePath(canonical.ID)
	var previous []byte
	if existed {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		previous = data
	}

	var moved []string
	restore := func(cause error) error {
		for i := len(moved) - 1; i >= 0; i-- {
			id := moved[i]
			if err := os.Rename(filepath.Join(s.root, destination, id), filepath.Join(s.root, customerDir, id)); err != nil {
				logger.GetAppLogger().WithError(err).WithField("profile_id", id).
					Error("🔀 [MERGE] Không chuyển được hồ sơ về chỗ cũ, cần kiểm tra thủ công")
			}
		}
		if existed {
			if err := os.WriteFile(path, previous, 0o644); err != nil {
				logger.GetAppLogger().WithError(err).WithField("file", path).Error("🔀 [MERGE] Không khôi phục được hồ sơ canonical")
			}
		}
		return cause
	}

	for _, id := range loserIDs {
		if err := ctx.Err(); err != nil {
			return restore(err)
		}
		if err := s.archive(id, destination); err != nil {
			return restore(fmt.Errorf("archive %s: %w", id, err))
		}
		moved = append(moved, id)
	}
	if err := s.persist(canonical); err != nil {
		return restore(fmt.Errorf("persist %s: %w", canonical.ID, err))
	}
	return nil
}

// ArchivedProfileIDs id các hồ sơ trong thư mục backup
func (s *Store) ArchivedProfileIDs(ctx context.Context, destination string) ([]string, error) {
	return subdirs(filepath.Join(s.root, destination))
}

// AdsChatSource

// LoadCampaignDays đọc log insight theo tháng; period rỗng = tất cả, "YYYY-MM" hoặc "YYYY"
func (s *Store) LoadCampaignDays(ctx context.Context, period string) ([]models.CampaignDay, error) {
	base := filepath.Join(s.root, filepath.FromSlash(campaignRoot))
	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, _ := filepath.Rel(base, path)
		if periodMatches(filepath.ToSlash(rel), period) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := make([]models.CampaignDay, 0, len(files))
	for _, path := range files {
		var day models.CampaignDay
		if err := readJSON(path, &day); err != nil {
			logger.GetAppLogger().WithError(err).WithField("file", path).Warn("📈 [ADS_CHAT] Bỏ qua log insight lỗi")
			continue
		}
		if day.Date == "" {
			day.Date = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		out = append(out, day)
	}
	return out, nil
}

// periodMatches rel có dạng YYYY/MM/<file>.json
func periodMatches(rel, period string) bool {
	if period == "" {
		return true
	}
	parts := strings.Split(rel, "/")
	if len(parts) < 3 {
		return false
	}
	return strings.HasPrefix(parts[0]+"-"+parts[1], period)
}

// LoadChatThreads mỗi file chathistory là một thread, sắp theo khách rồi theo tên file
func (s *Store) LoadChatThreads(ctx context.Context) ([]models.ChatThread, error) {
	folders, err := subdirs(filepath.Join(s.root, customerDir))
	if err != nil {
		return nil, err
	}
	var out []models.ChatThread
	for _, id := range folders {
		dir := filepath.Join(s.root, customerDir, id, chatDir)
		files, err := jsonFiles(dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			var export models.ChatExport
			if err := readJSON(filepath.Join(dir, f), &export); err != nil {
				logger.GetAppLogger().WithError(err).WithField("file", f).Warn("📈 [ADS_CHAT] Bỏ qua file chat lỗi")
				continue
			}
			out = append(out, models.ChatThread{
				CustomerID: id,
				File:       f,
				Messages:   export.Messages.Data,
			})
		}
	}
	return out, nil
}
