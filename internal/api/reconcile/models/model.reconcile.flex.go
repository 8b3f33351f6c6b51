package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FlexString nhận số hoặc chuỗi (dữ liệu cũ lưu order_id/id lẫn lộn hai kiểu), luôn xuất ra chuỗi.
type FlexString string

// String trả về giá trị chuỗi
func (f FlexString) String() string { return string(f) }

// UnmarshalJSON chấp nhận "123", 123 hoặc null
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// UnmarshalBSONValue chấp nhận string, int32, int64, double hoặc null
func (f *FlexString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*f = FlexString(rv.StringValue())
	case bsontype.Int32:
		*f = FlexString(strconv.FormatInt(int64(rv.Int32()), 10))
	case bsontype.Int64:
		*f = FlexString(strconv.FormatInt(rv.Int64(), 10))
	case bsontype.Double:
		*f = FlexString(strconv.FormatFloat(rv.Double(), 'f', -1, 64))
	case bsontype.Null, bsontype.Undefined:
		*f = ""
	default:
		return fmt.Errorf("flex string: unsupported bson type %s", t)
	}
	return nil
}

// FlexFloat nhận số hoặc chuỗi số (Graph API trả spend/value dạng chuỗi)
type FlexFloat float64

// UnmarshalJSON chấp nhận 12.5, "12.5", "" hoặc null
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flex float: %w", err)
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 trả về giá trị float64
func (f FlexFloat) Float64() float64 { return float64(f) }

// Extra giữ các field JSON không khai báo trong struct, để ghi lại file hồ sơ không làm mất dữ liệu.
// Với BSON, field Extra được khai báo ",inline" nên driver tự giữ.
type Extra = map[string]interface{}

var jsonNamesCache sync.Map // reflect.Type -> []string

func jsonFieldNames(t reflect.Type) []string {
	if cached, ok := jsonNamesCache.Load(t); ok {
		return cached.([]string)
	}
	var names []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = field.Name
		}
		names = append(names, name)
	}
	jsonNamesCache.Store(t, names)
	return names
}

// decodeWithExtra decode các field đã khai báo vào known (con trỏ tới kiểu alias),
// phần còn lại vào extra.
func decodeWithExtra(data []byte, known interface{}, extra *Extra) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	for _, name := range jsonFieldNames(reflect.TypeOf(known).Elem()) {
		delete(raw, name)
	}
	if len(raw) == 0 {
		*extra = nil
		return nil
	}
	*extra = raw
	return nil
}

// encodeWithExtra encode known rồi bổ sung các field trong extra chưa có
func encodeWithExtra(known interface{}, extra Extra) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; exists {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode extra field %q: %w", k, err)
		}
		merged[k] = b
	}
	return json.Marshal(merged)
}
