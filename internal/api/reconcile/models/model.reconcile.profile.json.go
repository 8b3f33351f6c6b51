package models

// JSON encode/decode giữ field lạ cho các kiểu hồ sơ.

func (p *CustomerProfile) UnmarshalJSON(data []byte) error {
	type alias CustomerProfile
	return decodeWithExtra(data, (*alias)(p), &p.Extra)
}

func (p CustomerProfile) MarshalJSON() ([]byte, error) {
	type alias CustomerProfile
	return encodeWithExtra(alias(p), p.Extra)
}

func (p *ProfileInfo) UnmarshalJSON(data []byte) error {
	type alias ProfileInfo
	return decodeWithExtra(data, (*alias)(p), &p.Extra)
}

func (p ProfileInfo) MarshalJSON() ([]byte, error) {
	type alias ProfileInfo
	return encodeWithExtra(alias(p), p.Extra)
}

func (c *ContactInfo) UnmarshalJSON(data []byte) error {
	type alias ContactInfo
	return decodeWithExtra(data, (*alias)(c), &c.Extra)
}

func (c ContactInfo) MarshalJSON() ([]byte, error) {
	type alias ContactInfo
	return encodeWithExtra(alias(c), c.Extra)
}

func (s *SocialProfiles) UnmarshalJSON(data []byte) error {
	type alias SocialProfiles
	return decodeWithExtra(data, (*alias)(s), &s.Extra)
}

func (s SocialProfiles) MarshalJSON() ([]byte, error) {
	type alias SocialProfiles
	return encodeWithExtra(alias(s), s.Extra)
}

func (f *FacebookProfile) UnmarshalJSON(data []byte) error {
	type alias FacebookProfile
	return decodeWithExtra(data, (*alias)(f), &f.Extra)
}

func (f FacebookProfile) MarshalJSON() ([]byte, error) {
	type alias FacebookProfile
	return encodeWithExtra(alias(f), f.Extra)
}

func (o *ProfileOrder) UnmarshalJSON(data []byte) error {
	type alias ProfileOrder
	return decodeWithExtra(data, (*alias)(o), &o.Extra)
}

func (o ProfileOrder) MarshalJSON() ([]byte, error) {
	type alias ProfileOrder
	return encodeWithExtra(alias(o), o.Extra)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	return decodeWithExtra(data, (*alias)(t), &t.Extra)
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return encodeWithExtra(alias(t), t.Extra)
}

func (i *Intelligence) UnmarshalJSON(data []byte) error {
	type alias Intelligence
	return decodeWithExtra(data, (*alias)(i), &i.Extra)
}

func (i Intelligence) MarshalJSON() ([]byte, error) {
	type alias Intelligence
	return encodeWithExtra(alias(i), i.Extra)
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	type alias Metrics
	return decodeWithExtra(data, (*alias)(m), &m.Extra)
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	return encodeWithExtra(alias(m), m.Extra)
}

func (i *Inventory) UnmarshalJSON(data []byte) error {
	type alias Inventory
	return decodeWithExtra(data, (*alias)(i), &i.Extra)
}

func (i Inventory) MarshalJSON() ([]byte, error) {
	type alias Inventory
	return encodeWithExtra(alias(i), i.Extra)
}

func (e *Entitlement) UnmarshalJSON(data []byte) error {
	type alias Entitlement
	return decodeWithExtra(data, (*alias)(e), &e.Extra)
}

func (e Entitlement) MarshalJSON() ([]byte, error) {
	type alias Entitlement
	return encodeWithExtra(alias(e), e.Extra)
}

func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	type alias TimelineEvent
	return decodeWithExtra(data, (*alias)(e), &e.Extra)
}

func (e TimelineEvent) MarshalJSON() ([]byte, error) {
	type alias TimelineEvent
	return encodeWithExtra(alias(e), e.Extra)
}
