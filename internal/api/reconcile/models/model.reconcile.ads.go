package models

// CampaignDay file log insight hằng ngày (marketing/logs/daily/YYYY/MM/*.json)
type CampaignDay struct {
	Date      string            `json:"date,omitempty"`
	Campaigns []CampaignInsight `json:"campaigns"`
}

// CampaignInsight insight của một campaign trong ngày
type CampaignInsight struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Spend        FlexFloat     `json:"spend"`
	Clicks       FlexFloat     `json:"clicks"`
	Actions      []ActionValue `json:"actions,omitempty"`
	ActionValues []ActionValue `json:"action_values,omitempty"`
}

// ActionValue cặp action_type/value của Graph API
type ActionValue struct {
	ActionType string    `json:"action_type"`
	Value      FlexFloat `json:"value"`
}

// ChatExport file chathistory/*.json (định dạng Graph API conversations)
type ChatExport struct {
	Messages struct {
		Data []ChatMessage `json:"data"`
	} `json:"messages"`
}

// ChatMessage một tin nhắn trong file export
type ChatMessage struct {
	ID          string    `json:"id,omitempty"`
	Message     string    `json:"message"`
	CreatedTime string    `json:"created_time"`
	From        ChatParty `json:"from"`
}

// ChatParty người gửi
type ChatParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatThread một file hội thoại của khách
type ChatThread struct {
	CustomerID string        `json:"customerId"`
	File       string        `json:"file"`
	Messages   []ChatMessage `json:"messages"`
}
