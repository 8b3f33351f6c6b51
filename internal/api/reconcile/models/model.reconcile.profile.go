package models

// CustomerProfile hồ sơ khách dạng document (profile_*.json cũ hoặc collection customer_profiles).
// ID là định danh lưu trữ (tên thư mục với file store, _id với Mongo); CustomerID là field
// customer_id trong document, có thể trống ở dữ liệu cũ.
// Các field không khai báo được giữ trong Extra ở mọi cấp để ghi lại không mất dữ liệu.
type CustomerProfile struct {
	ID             string          `json:"-" bson:"_id"`
	CustomerID     string          `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	FacebookID     FlexString      `json:"facebook_id,omitempty" bson:"facebook_id,omitempty"`
	Profile        ProfileInfo     `json:"profile" bson:"profile"`
	ContactInfo    ContactInfo     `json:"contact_info" bson:"contact_info"`
	SocialProfiles *SocialProfiles `json:"social_profiles,omitempty" bson:"social_profiles,omitempty"`
	Orders         []ProfileOrder  `json:"orders,omitempty" bson:"orders,omitempty"`
	Transactions   []Transaction   `json:"transactions,omitempty" bson:"transactions,omitempty"`
	Intelligence   Intelligence    `json:"intelligence" bson:"intelligence"`
	Inventory      Inventory       `json:"inventory" bson:"inventory"`
	Timeline       []TimelineEvent `json:"timeline,omitempty" bson:"timeline,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty" bson:"created_at,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// ProfileInfo thông tin cá nhân
type ProfileInfo struct {
	Agent     string `json:"agent,omitempty" bson:"agent,omitempty"` // Nhãn nhân viên phụ trách (text tự do)
	FirstName string `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" bson:"last_name,omitempty"`
	NickName  string `json:"nick_name,omitempty" bson:"nick_name,omitempty"`
	JoinDate  string `json:"join_date,omitempty" bson:"join_date,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// ContactInfo thông tin liên hệ
type ContactInfo struct {
	PhonePrimary string     `json:"phone_primary,omitempty" bson:"phone_primary,omitempty"`
	Email        string     `json:"email,omitempty" bson:"email,omitempty"`
	FacebookID   FlexString `json:"facebook_id,omitempty" bson:"facebook_id,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// SocialProfiles liên kết mạng xã hội
type SocialProfiles struct {
	Facebook *FacebookProfile `json:"facebook,omitempty" bson:"facebook,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// FacebookProfile tài khoản Facebook
type FacebookProfile struct {
	ID FlexString `json:"id,omitempty" bson:"id,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// ProfileOrder đơn hàng lưu trong hồ sơ. Khoá tự nhiên: OrderID.
type ProfileOrder struct {
	OrderID     FlexString `json:"order_id" bson:"order_id"`
	Date        string     `json:"date,omitempty" bson:"date,omitempty"`
	TotalAmount float64    `json:"total_amount,omitempty" bson:"total_amount,omitempty"`
	Amount      float64    `json:"amount,omitempty" bson:"amount,omitempty"`
	Status      string     `json:"status,omitempty" bson:"status,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// Value số tiền đơn: total_amount, nếu trống thì amount
func (o ProfileOrder) Value() float64 {
	if o.TotalAmount != 0 {
		return o.TotalAmount
	}
	return o.Amount
}

// Transaction giao dịch thanh toán. Khoá tự nhiên: TransactionID.
type Transaction struct {
	TransactionID FlexString `json:"transaction_id" bson:"transaction_id"`
	Date          string     `json:"date,omitempty" bson:"date,omitempty"`
	Amount        float64    `json:"amount,omitempty" bson:"amount,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// Intelligence tag và chỉ số tích luỹ
type Intelligence struct {
	Tags    []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Metrics Metrics  `json:"metrics" bson:"metrics"`

	Extra Extra `json:"-" bson:",inline"`
}

// Metrics chỉ số tích luỹ (bộ đếm cộng dồn, khi gộp lấy max)
type Metrics struct {
	TotalSpend float64 `json:"total_spend" bson:"total_spend"`
	TotalOrder int     `json:"total_order" bson:"total_order"`

	Extra Extra `json:"-" bson:",inline"`
}

// Inventory quyền lợi khách đã mua
type Inventory struct {
	LearningCourses []Entitlement `json:"learning_courses,omitempty" bson:"learning_courses,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// Entitlement khoá học/quyền lợi. Khoá tự nhiên: ID.
type Entitlement struct {
	ID   FlexString `json:"id" bson:"id"`
	Name string     `json:"name,omitempty" bson:"name,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}

// TimelineEvent sự kiện trên timeline. Khoá tự nhiên: (ID, Date).
type TimelineEvent struct {
	ID      FlexString `json:"id" bson:"id"`
	Date    string     `json:"date" bson:"date"`
	Type    string     `json:"type,omitempty" bson:"type,omitempty"`
	Summary string     `json:"summary,omitempty" bson:"summary,omitempty"`

	Extra Extra `json:"-" bson:",inline"`
}
