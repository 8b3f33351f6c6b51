// Package ruleset đọc file quy tắc đối soát (YAML): nhãn không phải nhân viên, marker hồ sơ chuẩn,
// alias nhân viên, keyword chiến dịch và keyword thanh toán.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	reconcilesvc "data_hub/internal/api/reconcile/service"
	"data_hub/internal/common"
	"data_hub/internal/global"
)

// Rules nội dung file quy tắc
type Rules struct {
	Sentinels           []string                    `yaml:"sentinels" validate:"dive,no_blank"`
	CanonicalMarkers    []string                    `yaml:"canonicalMarkers" validate:"dive,no_blank"`
	MinSubstringLength  *int                        `yaml:"minSubstringLength" validate:"omitempty,min=0"`
	FacebookEmailDomain string                      `yaml:"facebookEmailDomain"`
	Aliases             []reconcilesvc.AliasMapping `yaml:"aliases" validate:"dive"`
	PageID              string                      `yaml:"pageId"`
	PageName            string                      `yaml:"pageName"`
	Campaigns           []reconcilesvc.CampaignRule `yaml:"campaigns" validate:"dive"`
	PaymentKeywords     []string                    `yaml:"paymentKeywords" validate:"dive,no_blank"`
	AmountKeywords      []string                    `yaml:"amountKeywords" validate:"dive,no_blank"`
}

// Load đọc và kiểm tra file quy tắc. path rỗng trả về bộ quy tắc rỗng (dùng mặc định).
func Load(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WithDetails(common.ErrConfiguration, fmt.Errorf("đọc file quy tắc %s: %w", path, err))
	}
	return Parse(data)
}

// Parse giải mã YAML; field lạ bị từ chối để bắt lỗi gõ sai key
func Parse(data []byte) (*Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return nil, common.WithDetails(common.ErrInvalidFormat, fmt.Errorf("parse quy tắc: %w", err))
	}
	if err := global.Struct(&r); err != nil {
		return nil, common.WithDetails(common.ErrInvalidInput, err.Error())
	}
	return &r, nil
}

// ResolverOptions cấu hình Identity Resolver. pageName (từ cấu hình môi trường) được thêm vào sentinel.
func (r *Rules) ResolverOptions(pageName string) reconcilesvc.ResolverOptions {
	opts := reconcilesvc.DefaultResolverOptions()
	if len(r.Sentinels) > 0 {
		opts.Sentinels = appendUnique(nil, r.Sentinels...)
		opts.Sentinels = appendUnique(opts.Sentinels, reconcilesvc.SentinelUnassigned)
	}
	opts.Sentinels = appendUnique(opts.Sentinels, r.PageName, pageName)
	if r.MinSubstringLength != nil {
		opts.MinSubstringLength = *r.MinSubstringLength
	}
	return opts
}

// MergeOptions cấu hình Profile Merger
func (r *Rules) MergeOptions() reconcilesvc.MergeOptions {
	opts := reconcilesvc.DefaultMergeOptions()
	if len(r.CanonicalMarkers) > 0 {
		opts.Markers = append([]string(nil), r.CanonicalMarkers...)
	}
	if d := strings.TrimSpace(r.FacebookEmailDomain); d != "" {
		opts.EmailDomain = d
	}
	return opts
}

// AdsChatRules quy tắc đối soát quảng cáo/chat. Period được điền khi chạy.
func (r *Rules) AdsChatRules(pageName string) reconcilesvc.AdsChatRules {
	name := r.PageName
	if name == "" {
		name = pageName
	}
	return reconcilesvc.AdsChatRules{
		PageID:          r.PageID,
		PageName:        name,
		Campaigns:       r.Campaigns,
		PaymentKeywords: r.PaymentKeywords,
		AmountKeywords:  r.AmountKeywords,
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, v) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
