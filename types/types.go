// types/types.go
package types

import (
	"encoding/json"
	"time"
)

// 客户类型（定价策略的键）
type CustomerType string

const (
	CustomerRegular  CustomerType = "regular"
	CustomerPremium  CustomerType = "premium"
	CustomerGold     CustomerType = "gold"
	CustomerEmployee CustomerType = "employee"
	CustomerVIP      CustomerType = "vip"
	CustomerPlatinum CustomerType = "platinum"
)

// 通知渠道（发送策略的键）
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelPush     Channel = "push"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSlack    Channel = "slack"
)

// 员工角色（奖金比例的键）
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
	RoleDirector  Role = "director"
)

// 订单状态
type OrderStatus string

const (
	StatusProcessed OrderStatus = "processed"
	StatusFailed    OrderStatus = "failed"
)

// 通知接收方，各渠道只读取自己需要的地址
type Recipient struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
	DeviceID string `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	SlackID  string `json:"slack_id,omitempty" yaml:"slack_id,omitempty"`
}

// 分发给通知策略的负载
type Message struct {
	Channel Channel   `json:"channel"`
	To      Recipient `json:"to"`
	Body    string    `json:"body"`
}

// 订单（定价与通知的输入）
type Order struct {
	ID           string       `json:"id"`
	BasePrice    float64      `json:"base_price"`
	CustomerType CustomerType `json:"customer_type"`
	NotifyBy     Channel      `json:"notify_by"`
	Customer     Recipient    `json:"customer"`
}

// 处理结果
type OrderResult struct {
	OrderID    string      `json:"order_id"`
	FinalPrice float64     `json:"final_price"`
	Status     OrderStatus `json:"status"`
}

// 持久化的订单记录
type OrderRecord struct {
	ID           string       `json:"id"`
	CustomerType CustomerType `json:"customer_type"`
	Channel      Channel      `json:"channel"`
	BasePrice    float64      `json:"base_price"`
	FinalPrice   float64      `json:"final_price"`
	Status       OrderStatus  `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// 员工（奖金计算的负载）
type Employee struct {
	Name   string  `json:"name,omitempty"`
	Role   Role    `json:"role"`
	Salary float64 `json:"salary"`
}

// 序列化订单记录
func (r *OrderRecord) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

// 反序列化订单记录
func DeserializeOrder(data []byte) (*OrderRecord, error) {
	var rec OrderRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
