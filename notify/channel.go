// notify/channel.go
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/transport"
	"github.com/chhz0/dispatchr/types"
)

var ErrMissingAddress = errors.New("recipient has no address for channel")

// Channel 所有渠道都有名字；能力由下面的小接口单独声明
type Channel interface {
	Name() types.Channel
}

// Sender 发送能力
type Sender interface {
	Send(ctx context.Context, to types.Recipient, body string) error
}

// Archiver 只读渠道的归档能力，不承诺发送
type Archiver interface {
	Archive(ctx context.Context, to types.Recipient, body string) error
}

// 各渠道从接收方取地址
var addressOf = map[types.Channel]func(types.Recipient) string{
	types.ChannelEmail:    func(r types.Recipient) string { return r.Email },
	types.ChannelSMS:      func(r types.Recipient) string { return r.Phone },
	types.ChannelPush:     func(r types.Recipient) string { return r.DeviceID },
	types.ChannelWhatsApp: func(r types.Recipient) string { return r.Phone },
	types.ChannelSlack:    func(r types.Recipient) string { return r.SlackID },
}

// Addressable 接收方是否有该渠道所需的地址；没有地址规则的渠道不做检查
func Addressable(ch types.Channel, to types.Recipient) error {
	addr, ok := addressOf[ch]
	if !ok || addr(to) != "" {
		return nil
	}
	return fmt.Errorf("%s: %w", ch, ErrMissingAddress)
}

// ChannelSender 通过注入的传输发送，不自己创建客户端
type ChannelSender struct {
	channel   types.Channel
	provider  string
	address   func(types.Recipient) string
	transport transport.Transport
}

func NewChannelSender(ch types.Channel, provider string, t transport.Transport) (*ChannelSender, error) {
	addr, ok := addressOf[ch]
	if !ok {
		return nil, fmt.Errorf("notify: no address rule for channel %q", ch)
	}
	if t == nil {
		return nil, fmt.Errorf("notify: channel %q: transport cannot be nil", ch)
	}
	return &ChannelSender{channel: ch, provider: provider, address: addr, transport: t}, nil
}

func Email(t transport.Transport) *ChannelSender    { return mustSender(types.ChannelEmail, "smtp", t) }
func SMS(t transport.Transport) *ChannelSender      { return mustSender(types.ChannelSMS, "twilio", t) }
func Push(t transport.Transport) *ChannelSender     { return mustSender(types.ChannelPush, "fcm", t) }
func WhatsApp(t transport.Transport) *ChannelSender { return mustSender(types.ChannelWhatsApp, "whatsapp", t) }
func Slack(t transport.Transport) *ChannelSender    { return mustSender(types.ChannelSlack, "slack", t) }

func mustSender(ch types.Channel, provider string, t transport.Transport) *ChannelSender {
	s, err := NewChannelSender(ch, provider, t)
	if err != nil {
		panic(err)
	}
	return s
}

func (c *ChannelSender) Name() types.Channel {
	return c.channel
}

func (c *ChannelSender) Send(ctx context.Context, to types.Recipient, body string) error {
	addr := c.address(to)
	if addr == "" {
		return fmt.Errorf("%s: %w", c.channel, ErrMissingAddress)
	}
	return c.transport.Deliver(ctx, transport.Envelope{
		Provider: c.provider,
		Channel:  c.channel,
		Address:  addr,
		Body:     body,
	})
}

// Behaviors 把发送者适配为注册表中的行为
func Behaviors(senders map[types.Channel]Sender) map[types.Channel]core.Behavior[types.Message, struct{}] {
	out := make(map[types.Channel]core.Behavior[types.Message, struct{}], len(senders))
	for ch, s := range senders {
		out[ch] = SendBehavior(s)
	}
	return out
}

func SendBehavior(s Sender) core.BehaviorFunc[types.Message, struct{}] {
	if s == nil {
		return nil
	}
	return func(ctx context.Context, msg types.Message) (struct{}, error) {
		return struct{}{}, s.Send(ctx, msg.To, msg.Body)
	}
}
