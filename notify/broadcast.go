// notify/broadcast.go
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/chhz0/dispatchr/types"
)

// ReadOnlyChannel 只归档不发送的渠道。它没有 Send 方法，
// 调用方必须显式检查能力，而不是在发送时得到一个错误。
type ReadOnlyChannel struct {
	channel types.Channel
	archive func(ctx context.Context, to types.Recipient, body string) error
}

func NewReadOnlyChannel(ch types.Channel, archive func(ctx context.Context, to types.Recipient, body string) error) *ReadOnlyChannel {
	return &ReadOnlyChannel{channel: ch, archive: archive}
}

func (c *ReadOnlyChannel) Name() types.Channel {
	return c.channel
}

func (c *ReadOnlyChannel) Archive(ctx context.Context, to types.Recipient, body string) error {
	if c.archive == nil {
		return nil
	}
	return c.archive(ctx, to, body)
}

// Report 一次广播的结果
type Report struct {
	Sent     []types.Channel
	Archived []types.Channel
	Skipped  []types.Channel
}

// Broadcast 向每个渠道投递：能发送的发送，只读的归档，两者都不支持的跳过。
// 单个渠道失败不影响其它渠道，错误合并返回。
func Broadcast(ctx context.Context, channels []Channel, to types.Recipient, body string) (Report, error) {
	var (
		rep  Report
		errs []error
	)
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		switch c := ch.(type) {
		case Sender:
			if err := c.Send(ctx, to, body); err != nil {
				errs = append(errs, fmt.Errorf("send %s: %w", ch.Name(), err))
				continue
			}
			rep.Sent = append(rep.Sent, ch.Name())
		case Archiver:
			if err := c.Archive(ctx, to, body); err != nil {
				errs = append(errs, fmt.Errorf("archive %s: %w", ch.Name(), err))
				continue
			}
			rep.Archived = append(rep.Archived, ch.Name())
		default:
			rep.Skipped = append(rep.Skipped, ch.Name())
		}
	}
	return rep, errors.Join(errs...)
}
